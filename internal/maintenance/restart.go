// Package maintenance restarts the core server process. The old reboot
// script killed whatever sat on the port and then every interpreter
// process on the machine; this version tracks the server by PID file,
// terminates exactly that PID, and verifies the replacement is actually
// accepting connections before claiming success.
package maintenance

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/HW-25/Project-QLX/internal/config"
)

const (
	// restartPause matches the old script's fixed wait between stop and
	// relaunch, giving the listening socket time to free up.
	restartPause  = 1 * time.Second
	verifyTimeout = 10 * time.Second
	verifyStep    = 500 * time.Millisecond
)

// Options describes how to relaunch the core server.
type Options struct {
	Core config.CoreConfig
	// ConfigPath is forwarded to the relaunched process.
	ConfigPath string
	// Executable is the qlx binary to relaunch, normally os.Executable().
	Executable string
	Out        io.Writer
}

// Restart stops any tracked core server, relaunches it detached from the
// controlling terminal with combined output going to the log file, and
// verifies the new process accepts TCP connections.
func Restart(opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	pidPath := resolvePath(opts.Core.PIDFile, opts.Core.DataDir)
	logPath := resolvePath(opts.Core.LogFile, opts.Core.DataDir)

	stopTracked(pidPath, opts.Out)
	time.Sleep(restartPause)

	pid, err := launch(opts, logPath)
	if err != nil {
		return fmt.Errorf("relaunch core: %w", err)
	}
	if err := WritePID(pidPath, pid); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	addr := dialAddr(opts.Core.Listen)
	if err := verifyListening(addr, verifyTimeout); err != nil {
		return fmt.Errorf("core relaunched (pid %d) but not reachable on %s: %w", pid, addr, err)
	}

	fmt.Fprintf(opts.Out, "core server restarted (pid %d, listening on %s, log %s)\n", pid, addr, logPath)
	return nil
}

// TrackPID records the current process as the tracked core server, so a
// later restart can find it even when the server was started by hand.
func TrackPID(core config.CoreConfig) error {
	return WritePID(resolvePath(core.PIDFile, core.DataDir), os.Getpid())
}

// stopTracked terminates the PID-file process if one is alive. Every
// "nothing to act on" case is tolerated: no file, stale PID, process
// already gone.
func stopTracked(pidPath string, out io.Writer) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("maintenance: ignoring pid file: %v", err)
		}
		fmt.Fprintln(out, "no tracked core process")
		return
	}

	if !Alive(pid) {
		fmt.Fprintf(out, "tracked core process %d already gone\n", pid)
		return
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		log.Printf("maintenance: terminate pid %d: %v", pid, err)
		return
	}

	// Give it a moment to exit cleanly.
	deadline := time.Now().Add(5 * time.Second)
	for Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if Alive(pid) {
		log.Printf("maintenance: pid %d did not exit after SIGTERM", pid)
	} else {
		fmt.Fprintf(out, "stopped core process %d\n", pid)
	}
}

func launch(opts Options, logPath string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return 0, err
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	args := []string{"core", "serve"}
	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}

	cmd := exec.Command(opts.Executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	// New session: the server survives the terminal that restarted it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		log.Printf("maintenance: release pid %d: %v", pid, err)
	}
	return pid, nil
}

func verifyListening(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, verifyStep)
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err
		time.Sleep(verifyStep)
	}
	return lastErr
}

// dialAddr turns a listen address like ":5000" into one dialable locally.
func dialAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "127.0.0.1" + listen
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		return net.JoinHostPort("127.0.0.1", port)
	}
	return listen
}

func resolvePath(path, dataDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}
