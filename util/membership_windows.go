package util

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// IsAdmin returns true when the process token belongs to the built-in
// Administrators group or is elevated.
func IsAdmin() bool {
	adminSid, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		log.Errorf("failed to create administrators SID: %v", err)
		return false
	}

	token := windows.GetCurrentProcessToken()
	member, err := token.IsMember(adminSid)
	if err != nil {
		log.Errorf("failed to check token membership: %v", err)
		return false
	}

	return member || token.IsElevated()
}
