package secrets

import (
	"fmt"
	"os"
	"runtime"

	"github.com/zalando/go-keyring"
)

const keyringService = "martbuild"

// StorePassword saves the warehouse password for an account in the OS keychain
func StorePassword(account, password string) error {
	if err := keyring.Set(keyringService, account, password); err != nil {
		return fmt.Errorf("failed to store password in keychain: %w", err)
	}
	return nil
}

// LoadPassword retrieves the warehouse password for an account
func LoadPassword(account string) (string, error) {
	password, err := keyring.Get(keyringService, account)
	if err != nil {
		return "", fmt.Errorf("failed to read password from keychain: %w", err)
	}
	return password, nil
}

// DeletePassword removes the stored password for an account
func DeletePassword(account string) error {
	if err := keyring.Delete(keyringService, account); err != nil {
		return fmt.Errorf("failed to delete password from keychain: %w", err)
	}
	return nil
}

// IsAvailable reports whether a keychain backend can be used on this host
func IsAvailable() bool {
	if os.Getenv("MARTBUILD_USE_KEYCHAIN") == "false" {
		return false
	}

	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		// Secret Service needs a session D-Bus
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	default:
		return false
	}
}
