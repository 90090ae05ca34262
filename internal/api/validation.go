package api

import (
	"errors"
	"mime"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
)

const maxUsernameLength = 150

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	errUsernameRequired = errors.New("username: this field is required")
	errUsernameInvalid  = errors.New("username: may contain only letters, numbers and @/./+/-/_ characters")
	errUsernameTooLong  = errors.New("username: ensure this field has no more than 150 characters")
	errEmailRequired    = errors.New("email: this field is required")
	errEmailInvalid     = errors.New("email: enter a valid email address")
)

func validateUsername(username string) error {
	switch {
	case username == "":
		return errUsernameRequired
	case len(username) > maxUsernameLength:
		return errUsernameTooLong
	case !usernamePattern.MatchString(username):
		return errUsernameInvalid
	}
	return nil
}

// normalizeEmail accepts a bare address only; display-name forms are rejected.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errEmailInvalid
	}
	return email, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// formValue returns a pointer to a multipart text field, or nil when the field
// was not sent at all.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
