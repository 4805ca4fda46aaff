package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/patric-chuzhbe/adshrt/internal/auth"
	"github.com/patric-chuzhbe/adshrt/internal/db/memorystorage"
	"github.com/patric-chuzhbe/adshrt/internal/ipchecker"
	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/service"
)

func setupExampleServer(adChain models.AdChain) (*httptest.Server, *http.Client) {
	db, err := memorystorage.New()
	if err != nil {
		panic(err)
	}

	checker, err := ipchecker.New("")
	if err != nil {
		panic(err)
	}

	server := httptest.NewServer(New(
		service.New(db, testBase, service.WithAdChain(adChain)),
		auth.New(db, testCookie, []byte(testSecret), time.Hour),
		checker,
		false,
	))

	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return server, client
}

func exampleLogIn(server *httptest.Server, client *http.Client) {
	form := url.Values{"username": {"frank"}, "password": {testPassword}}
	for _, path := range []string{"/signup", "/login"} {
		resp, err := client.PostForm(server.URL+path, form)
		if err != nil {
			panic(err)
		}
		resp.Body.Close()
	}
}

func ExampleRouter_GetPing() {
	server, client := setupExampleServer(models.AdChainDouble)
	defer server.Close()

	resp, err := client.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_GetEntry() {
	server, client := setupExampleServer(models.AdChainDouble)
	defer server.Close()
	exampleLogIn(server, client)

	body, err := json.Marshal(models.ShortenRequest{URL: "https://example.com"})
	if err != nil {
		panic(err)
	}
	resp, err := client.Post(server.URL+"/api/shorten", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	var shortened models.ShortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&shortened); err != nil {
		panic(err)
	}
	resp.Body.Close()

	short := strings.TrimPrefix(shortened.Result, testBase+"/")
	path := "/" + short
	for path != "" {
		resp, err := client.Get(server.URL + path)
		if err != nil {
			panic(err)
		}
		resp.Body.Close()

		location := resp.Header.Get("Location")
		if location == "" {
			fmt.Println(resp.StatusCode)
		} else {
			fmt.Println(resp.StatusCode, strings.ReplaceAll(location, short, "{short}"))
		}

		path = ""
		switch {
		case strings.HasPrefix(location, "/"):
			path = location
		case resp.StatusCode == http.StatusOK:
			path = service.ClickPath(short)
		}
	}

	// Output:
	// 302 /ad/{short}
	// 200
	// 307 https://example.com
}
