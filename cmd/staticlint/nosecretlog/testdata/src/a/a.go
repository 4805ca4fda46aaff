package a

type sugared struct{}

func (sugared) Infow(msg string, keysAndValues ...interface{}) {}

func (sugared) Debugln(args ...interface{}) {}

func (sugared) Render(args ...interface{}) {}

var log sugared

type credentials struct {
	Username string
	Password string
}

func signUp(username, password string) {
	log.Infow("user signed up", "username", username)
	log.Infow("user signed up", "password", password) // want `password passed to Infow` `password passed to Infow`
	log.Debugln("wrong password for", username)
}

func login(creds credentials, secretKey []byte) {
	log.Infow("login", "user", creds.Username)
	log.Debugln("login", creds.Password) // want `Password passed to Debugln`
	log.Debugln(secretKey)               // want `secretKey passed to Debugln`
	log.Render(secretKey)
}
