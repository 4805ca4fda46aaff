package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/adshrt/internal/auth"
	"github.com/patric-chuzhbe/adshrt/internal/logger"
	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

const (
	// DefaultCPCRate is the revenue of one click.
	DefaultCPCRate = 0.5

	// DefaultCPMRate is the revenue of a thousand impressions.
	DefaultCPMRate = 5.0
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type linksKeeper interface {
	InsertShortLink(ctx context.Context, link *models.ShortLink) error
	FindFullByShort(ctx context.Context, short string) (string, bool, error)
	IncrementCounters(ctx context.Context, short string, impressions, clicks int64) (string, bool, error)
	GetUserLinks(ctx context.Context, userID int64) ([]models.ShortLink, error)
	ResetUserCounters(ctx context.Context, userID int64) error
	GetNumberOfShortenedURLs(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	linksKeeper
	pinger
}

// Service holds the business rules of the shortener: accounts, code generation,
// the ad chain and revenue accounting.
type Service struct {
	db           storage
	shortURLBase string
	adChain      models.AdChain
	cpcRate      float64
	cpmRate      float64
	generateCode func() (string, error)
}

type Option func(*Service)

// WithAdChain selects the chain variant; the default is models.AdChainDouble.
func WithAdChain(adChain models.AdChain) Option {
	return func(s *Service) {
		s.adChain = adChain
	}
}

// WithRates overrides the per-click and per-mille rates.
func WithRates(cpcRate, cpmRate float64) Option {
	return func(s *Service) {
		s.cpcRate = cpcRate
		s.cpmRate = cpmRate
	}
}

// WithCodeGenerator replaces GenerateShortCode.
func WithCodeGenerator(generateCode func() (string, error)) Option {
	return func(s *Service) {
		s.generateCode = generateCode
	}
}

func New(db storage, shortURLBase string, opts ...Option) *Service {
	s := &Service{
		db:           db,
		shortURLBase: strings.TrimRight(shortURLBase, "/"),
		adChain:      models.AdChainDouble,
		cpcRate:      DefaultCPCRate,
		cpmRate:      DefaultCPMRate,
		generateCode: GenerateShortCode,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SignUp registers a user. A taken username yields models.ErrUsernameTaken.
func (s *Service) SignUp(ctx context.Context, username, password string) (int64, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}

	userID, err := s.db.CreateUser(ctx, &user.User{Username: username, PasswordHash: hash})
	if err != nil {
		return 0, err
	}
	logger.Log.Infow("user signed up", "user_id", userID, "username", username)

	return userID, nil
}

// LogIn checks the credentials. Any mismatch yields models.ErrInvalidCredentials.
func (s *Service) LogIn(ctx context.Context, username, password string) (*user.User, error) {
	usr, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if usr.ID == 0 || !auth.CheckPassword(usr.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}

	return usr, nil
}

// ShortenURL stores longURL under a fresh short code owned by userID and returns the short URL.
func (s *Service) ShortenURL(ctx context.Context, longURL string, userID int64) (string, error) {
	longURL = strings.TrimSpace(longURL)
	if !isValidURL(longURL) {
		return "", models.ErrInvalidURL
	}

	for i := 0; i < TriesToGenerateUniqueCode; i++ {
		short, err := s.generateCode()
		if err != nil {
			return "", err
		}

		err = s.db.InsertShortLink(ctx, &models.ShortLink{
			Short:  short,
			Long:   longURL,
			UserID: userID,
		})
		if errors.Is(err, models.ErrShortCodeTaken) {
			logger.Log.Debugw("short code collision", "short", short, "attempt", i+1)
			continue
		}
		if err != nil {
			return "", fmt.Errorf(
				"in internal/service/service.go/ShortenURL(): error while `s.db.InsertShortLink()` calling: %w",
				err,
			)
		}

		return s.GetShortURL(short), nil
	}

	return "", models.ErrShortCodeAttemptsExceeded
}

// Enter handles the first hop of the chain for short.
func (s *Service) Enter(ctx context.Context, short string) (models.ChainStep, error) {
	switch s.adChain {
	case models.AdChainDirect:
		full, err := s.hit(ctx, short, 1, 1)
		if err != nil {
			return models.ChainStep{}, err
		}
		return models.ChainStep{Kind: models.StepExternalRedirect, Location: full}, nil

	case models.AdChainSingle:
		if err := s.RecordImpression(ctx, short); err != nil {
			return models.ChainStep{}, err
		}
		return models.ChainStep{Kind: models.StepRenderAd, Location: ClickPath(short)}, nil
	}

	_, found, err := s.db.FindFullByShort(ctx, short)
	if err != nil {
		return models.ChainStep{}, err
	}
	if !found {
		return models.ChainStep{}, models.ErrLinkNotFound
	}

	return models.ChainStep{Kind: models.StepInternalRedirect, Location: ImpressionPath(short)}, nil
}

// RecordImpression counts one view of the interstitial page for short.
func (s *Service) RecordImpression(ctx context.Context, short string) error {
	_, err := s.hit(ctx, short, 1, 0)

	return err
}

// RecordClick counts one follow-through for short and returns the destination.
func (s *Service) RecordClick(ctx context.Context, short string) (string, error) {
	return s.hit(ctx, short, 0, 1)
}

func (s *Service) hit(ctx context.Context, short string, impressions, clicks int64) (string, error) {
	full, found, err := s.db.IncrementCounters(ctx, short, impressions, clicks)
	if err != nil {
		return "", err
	}
	if !found {
		return "", models.ErrLinkNotFound
	}
	logger.Log.Debugw("ad chain hop", "short", short, "impressions", impressions, "clicks", clicks)

	return full, nil
}

// GetUserURLs lists the user's links with absolute short URLs.
func (s *Service) GetUserURLs(ctx context.Context, userID int64) (models.UserUrls, error) {
	links, err := s.db.GetUserLinks(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return models.UserUrls{}, nil
	}

	return funk.Map(links, func(link models.ShortLink) models.UserURL {
		return models.UserURL{
			ShortURL:    s.GetShortURL(link.Short),
			OriginalURL: link.Long,
			Clicks:      link.Clicks,
			Impressions: link.Impressions,
		}
	}).([]models.UserURL), nil
}

// GetStats sums the counters of the user's links and prices them.
func (s *Service) GetStats(ctx context.Context, userID int64) (models.StatsResponse, error) {
	links, err := s.db.GetUserLinks(ctx, userID)
	if err != nil {
		return models.StatsResponse{}, err
	}

	var stats models.StatsResponse
	for _, link := range links {
		stats.Clicks += link.Clicks
		stats.Impressions += link.Impressions
	}
	stats.Revenue = Revenue(stats.Clicks, stats.Impressions, s.cpcRate, s.cpmRate)

	return stats, nil
}

// ResetCounters zeroes the counters of every link the user owns.
func (s *Service) ResetCounters(ctx context.Context, userID int64) error {
	if err := s.db.ResetUserCounters(ctx, userID); err != nil {
		return err
	}
	logger.Log.Infow("counters reset", "user_id", userID)

	return nil
}

// GetInternalStats returns the total number of links and users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	urls, err := s.db.GetNumberOfShortenedURLs(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		URLs:  urls,
		Users: users,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) GetShortURL(short string) string {
	return s.shortURLBase + "/" + short
}

// Revenue prices clicks at cpcRate each and impressions at cpmRate per thousand.
func Revenue(clicks, impressions int64, cpcRate, cpmRate float64) float64 {
	return float64(clicks)*cpcRate + float64(impressions)/1000*cpmRate
}

// ImpressionPath is the route of the impression hop.
func ImpressionPath(short string) string {
	return "/ad/" + short
}

// ClickPath is the route of the click hop.
func ClickPath(short string) string {
	return "/go/" + short
}

func isValidURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil &&
		(u.Scheme == "http" || u.Scheme == "https") &&
		u.Host != ""
}
