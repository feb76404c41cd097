package shell

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/vars"
)

var (
	promptUser  = color.New(color.FgGreen).SprintFunc()
	promptDir   = color.New(color.FgCyan).SprintFunc()
	bannerColor = color.New(color.FgBlue, color.Bold).SprintFunc()
)

// renderPrompt expands the escapes in a PROMPT value:
//
//	\u  user name
//	\h  host name
//	\w  working directory, with the home directory shown as ~
//	\$  # for root, $ otherwise
func renderPrompt(prompt string, table *vars.Table) string {
	host, _ := os.Hostname()

	cwd := table.Get(vars.CWD)
	if home := table.Get(vars.Home); home != "" && home != "/" {
		if cwd == home {
			cwd = "~"
		} else if strings.HasPrefix(cwd, home+"/") {
			cwd = "~" + strings.TrimPrefix(cwd, home)
		}
	}

	dollar := "$"
	if os.Geteuid() == 0 {
		dollar = "#"
	}

	r := strings.NewReplacer(
		`\u`, promptUser(table.Get(vars.User)),
		`\h`, host,
		`\w`, promptDir(cwd),
		`\$`, dollar,
	)
	return r.Replace(prompt)
}
