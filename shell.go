package main

import (
	"context"
	"fmt"
	"os"
	"text/template"

	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
)

// shellCmd groups the shell-integration subcommands.
type shellCmd struct {
	Init shellInitCmd `cmd:"" help:"Print the shell wrapper function for <bash|zsh|fish>."`
}

// shellInitCmd implements `wt shell init <bash|zsh|fish>`: print a
// wrapper function that runs the real binary with --internal and a
// fresh directive file, then dispatches the NUL-separated records it
// wrote against the invoking shell (cd/eval), matching the protocol
// in internal/directive.
type shellInitCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell to generate the wrapper for."`
}

type shellWrapperVars struct {
	CDPrefix   string
	ExecPrefix string
}

func (cmd *shellInitCmd) Run(ctx context.Context, root *rootCmd) error {
	vars := shellWrapperVars{
		CDPrefix:   directive.PrefixCD,
		ExecPrefix: directive.PrefixExec,
	}

	var tmplText string
	switch cmd.Shell {
	case "bash", "zsh":
		tmplText = bashZshWrapperTemplate
	case "fish":
		tmplText = fishWrapperTemplate
	default:
		return fmt.Errorf("unsupported shell: %s", cmd.Shell)
	}

	tmpl, err := template.New(cmd.Shell).Parse(tmplText)
	if err != nil {
		return fmt.Errorf("parse %s wrapper template: %w", cmd.Shell, err)
	}
	return tmpl.Execute(os.Stdout, vars)
}

// bashZshWrapperTemplate covers both bash and zsh: both support the
// same parameter-expansion prefix-stripping idiom.
const bashZshWrapperTemplate = `wt() {
  local wt_directive_file
  wt_directive_file="$(mktemp)"
  WT_DIRECTIVE_FILE="$wt_directive_file" command wt --internal "$@"
  local wt_status=$?

  local wt_record
  while IFS= read -r -d '' wt_record; do
    case "$wt_record" in
      {{.CDPrefix}}*)
        cd "${wt_record#{{.CDPrefix}}}" || return
        ;;
      {{.ExecPrefix}}*)
        eval "${wt_record#{{.ExecPrefix}}}"
        ;;
    esac
  done < "$wt_directive_file"
  rm -f "$wt_directive_file"
  return $wt_status
}
`

// fishWrapperTemplate mirrors the bash/zsh wrapper using fish's own
// string-splitting and substring builtins in place of parameter
// expansion, since fish has neither "${var#prefix}" nor NUL-delimited
// `read -d`.
const fishWrapperTemplate = `function wt
  set -l wt_directive_file (mktemp)
  env WT_DIRECTIVE_FILE=$wt_directive_file command wt --internal $argv
  set -l wt_status $status

  for wt_record in (string split0 < $wt_directive_file)
    if string match -q '{{.CDPrefix}}*' -- $wt_record
      cd (string sub -s 17 -- $wt_record)
    else if string match -q '{{.ExecPrefix}}*' -- $wt_record
      eval (string sub -s 19 -- $wt_record)
    end
  end
  rm -f $wt_directive_file
  return $wt_status
end
`
