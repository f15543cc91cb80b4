package root

import (
	auditcmd "github.com/zenGate-Global/palmyra-fieldops/apps/cli/cmd/audit"
	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cmd/auth"
	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cmd/migrate"
	orgcmd "github.com/zenGate-Global/palmyra-fieldops/apps/cli/cmd/org"
)

func init() {
	Root().AddCommand(migrate.Command())
	Root().AddCommand(orgcmd.Command())
	Root().AddCommand(auth.Command())
	Root().AddCommand(auditcmd.Command())
}
