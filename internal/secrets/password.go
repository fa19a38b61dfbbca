package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups this app's secrets in the OS keychain.
	KeyringService = "jobalert"

	// EnvSMTPPassword is the fallback for headless deployments without a
	// keychain daemon.
	EnvSMTPPassword = "JOBALERT_SMTP_PASSWORD"
)

func GetSMTPPassword(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}

	if pw := strings.TrimSpace(os.Getenv(EnvSMTPPassword)); pw != "" {
		return pw, nil
	}

	return "", errors.New("SMTP password not found (set it in keychain or via env)")
}

func SetSMTPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteSMTPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

func SMTPKeyringAccount(username, host string) string {
	return fmt.Sprintf("jobalert:smtp:%s@%s", username, host)
}
