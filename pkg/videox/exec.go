package videox

import (
	"fmt"
	"os/exec"
)

// ExitErrorVerbose prefers the process's stderr over its bare exit code
type ExitErrorVerbose struct {
	App    string
	Err    error
	Output string
}

func (e *ExitErrorVerbose) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%v execution failed: %v (%v)", e.App, e.Err, e.Output)
	}
	return fmt.Sprintf("%v execution failed: %v", e.App, e.Err)
}

func (e *ExitErrorVerbose) Unwrap() error {
	return e.Err
}

// app_name is an executable, such as "ffmpeg" or "ffprobe"
// args must not include the executable name as the first parameter
// Returns the string output from exec.Cmd's "CombinedOutput" method.
func RunAppCombinedOutput(app_name string, args []string) ([]byte, error) {
	app_path, err := exec.LookPath(app_name)
	if err != nil {
		return nil, fmt.Errorf("Unable to find '%v' in your path (%w)", app_name, err)
	}
	cmd := exec.Command(app_path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &ExitErrorVerbose{App: app_name, Err: err, Output: string(out)}
	}
	return out, nil
}

// HaveApp reports whether an executable such as ffmpeg can be found in the PATH
func HaveApp(app_name string) bool {
	_, err := exec.LookPath(app_name)
	return err == nil
}
