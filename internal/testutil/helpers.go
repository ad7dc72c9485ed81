package testutil

import (
	"os"
	"testing"
)

// RequireVM skips the test if the LINKMGR_VM_TEST environment variable is
// not set.  This ensures that tests requiring real kernel capabilities
// (wireless extensions, netlink, interfaces) are only run in the proper
// environment.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("LINKMGR_VM_TEST") == "" {
		t.Skip("Skipping test: requires LINKMGR_VM_TEST environment")
	}
}
