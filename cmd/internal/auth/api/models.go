package authapi

// credentialsRequest is the body of both signup and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Fixed client-facing messages. They never depend on the failure detail.
const (
	msgSignupOK         = "User registered successfully"
	msgLoginOK          = "Login successful"
	msgRequired         = "Username and password are required"
	msgPasswordTooLong  = "Password too long"
	msgPasswordTooShort = "Password too short"
	msgInvalidJSON      = "Invalid request body"
	msgUsernameTaken    = "Username already exists"
	msgInvalidCreds     = "Invalid credentials"
	msgUnavailable      = "Service temporarily unavailable"
	msgSignupFailed     = "Signup failed"
	msgLoginFailed      = "Login failed"
	msgNotAllowedPost   = "Method not allowed"
)
