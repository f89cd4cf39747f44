package main

import "github.com/prassanna-ravishankar/worktrunk/internal/komplete"

// completionCmd implements `wt completion <bash|zsh|fish>`: print the
// shell snippet that wires the real completion logic (driven by
// komplete.Run in main, via the posener/complete protocol) into that
// shell's own completion machinery.
type completionCmd struct {
	komplete.Command
}
