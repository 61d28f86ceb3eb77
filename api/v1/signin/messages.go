// Package signin is the wire contract of the fyra.signin.v1.SignIn gRPC service.
// Messages are plain structs carried by a JSON codec.
package signin

import "github.com/SinaHo/fyra-signin-backend/internal/model"

// State is the client's sign-in UI state. The server is stateless: clients
// send the state they hold and replace it with the one in the response.
type State struct {
	Strategy string `json:"strategy"`
	SignUp   bool   `json:"sign_up"`
	Stage    string `json:"stage"`
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Failure classifies why a request did not succeed.
type Failure struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AuthSession is an authenticated identity and its user record.
type AuthSession struct {
	UID           string            `json:"uid"`
	Email         string            `json:"email"`
	DisplayName   string            `json:"display_name,omitempty"`
	IDToken       string            `json:"id_token"`
	RecordCreated bool              `json:"record_created"`
	Record        *model.UserRecord `json:"record"`
}

type SendLinkRequest struct {
	ProfileID string `json:"profile_id"`
	State     State  `json:"state"`
	Email     string `json:"email"`
	Origin    string `json:"origin"`
	UserAgent string `json:"user_agent"`
}

type SendLinkResponse struct {
	State   State    `json:"state"`
	Notices []Notice `json:"notices"`
	Failure *Failure `json:"failure,omitempty"`
}

type DetectLinkRequest struct {
	ProfileID string `json:"profile_id"`
	State     State  `json:"state"`
	URL       string `json:"url"`
}

type DetectLinkResponse struct {
	IsSignInLink bool  `json:"is_sign_in_link"`
	State        State `json:"state"`
}

type ConfirmLinkRequest struct {
	ProfileID string `json:"profile_id"`
	State     State  `json:"state"`
	Link      string `json:"link"`
	Code      string `json:"code"`
}

type ConfirmLinkResponse struct {
	State   State        `json:"state"`
	Notices []Notice     `json:"notices"`
	Failure *Failure     `json:"failure,omitempty"`
	Session *AuthSession `json:"session,omitempty"`
}

type PasswordAuthRequest struct {
	ProfileID string `json:"profile_id"`
	State     State  `json:"state"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type PasswordAuthResponse struct {
	State   State        `json:"state"`
	Notices []Notice     `json:"notices"`
	Failure *Failure     `json:"failure,omitempty"`
	Session *AuthSession `json:"session,omitempty"`
}

// GetUserRecordRequest is empty; the caller is identified by its ID token.
type GetUserRecordRequest struct{}

type GetUserRecordResponse struct {
	Record *model.UserRecord `json:"record"`
}
