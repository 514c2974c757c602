package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// PasswordHandler detects and removes PDF encryption.
type PasswordHandler struct {
	creds PasswordCredentials
}

// NewPasswordHandler creates a handler that decrypts with creds. Empty
// credentials still open files protected only by an owner password.
func NewPasswordHandler(creds PasswordCredentials) *PasswordHandler {
	return &PasswordHandler{creds: creds}
}

// IsEncrypted checks if a PDF file is encrypted/password-protected.
func (h *PasswordHandler) IsEncrypted(filename string) (bool, error) {
	_, err := api.PageCountFile(filename)
	if err == nil {
		return false, nil
	}
	if IsPasswordError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to read PDF: %w", err)
}

// DecryptTo writes a decrypted copy of filename to dst. A partial output is
// removed on failure.
func (h *PasswordHandler) DecryptTo(filename, dst string) error {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = h.creds.UserPassword
	conf.OwnerPW = h.creds.OwnerPassword
	if err := api.DecryptFile(filename, dst, conf); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return nil
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	var pe *os.PathError
	if errors.As(err, &pe) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "unauthorized", "invalid credentials"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
