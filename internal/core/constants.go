package core

import "fmt"

const (
	MaintainerLink    = "https://github.com/dorcha-inc/vigil/blob/main/MAINTAINERS.md"
	BugReportTemplate = "\n\n[NOTE]This is most likely a bug in vigil, please reach out to the maintainers at %s"
)

func BugReportMessage() string {
	return fmt.Sprintf(BugReportTemplate, MaintainerLink)
}

// AgentVersion is stamped into every report.
const AgentVersion = "0.4.0"

// EnvPrefix prefixes every environment variable vigil reads.
const EnvPrefix = "VIGIL"
