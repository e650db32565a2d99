//go:build !unix

package download

import (
	"os/exec"
)

func configureProcessGroup(*exec.Cmd) {}
