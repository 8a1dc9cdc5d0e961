package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"clocktimer/internal/core/command"
	"clocktimer/internal/lifecycle"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// ErrNoSession indicates a forwarded command arrived with no session to take it.
var ErrNoSession = errors.New("no active session")

const (
	maxCommandSize = 4096
	connTimeout    = 2 * time.Second
	replyOK        = "ok"
	replyErrPrefix = "error: "
)

// InstanceGuard holds the single-instance lock. The locked socket also
// accepts newline-delimited command documents from later instances, which
// makes the guard a command source for the current session.
type InstanceGuard struct {
	listener net.Listener
	address  string
	logger   *slog.Logger

	mu       sync.Mutex
	submit   lifecycle.SubmitFunc
	fallback lifecycle.SubmitFunc
}

// AcquireSingleInstance attempts to bind a deterministic localhost port.
func AcquireSingleInstance(appName string, logger *slog.Logger) (*InstanceGuard, error) {
	return acquire(InstanceAddress(appName), logger)
}

// InstanceAddress returns the loopback address derived from appName.
func InstanceAddress(appName string) string {
	return fmt.Sprintf("127.0.0.1:%d", portFromName(appName))
}

func acquire(address string, logger *slog.Logger) (*InstanceGuard, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
	}
	return &InstanceGuard{
		listener: listener,
		address:  listener.Addr().String(),
		logger:   logger,
	}, nil
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	return guard.listener.Close()
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

// SetFallback sets the handler used while no session is registered.
func (guard *InstanceGuard) SetFallback(fallback lifecycle.SubmitFunc) {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.fallback = fallback
}

// Register implements lifecycle.CommandSource.
func (guard *InstanceGuard) Register(submit lifecycle.SubmitFunc) error {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.submit = submit
	return nil
}

// Unregister implements lifecycle.CommandSource.
func (guard *InstanceGuard) Unregister() error {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.submit = nil
	return nil
}

// Serve accepts forwarded commands until ctx is done or the guard is released.
func (guard *InstanceGuard) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = guard.Release()
	}()

	for {
		conn, err := guard.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept command connection: %w", err)
		}
		go guard.handle(ctx, conn)
	}
}

func (guard *InstanceGuard) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxCommandSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := replyOK
		if err := guard.dispatch(ctx, []byte(line)); err != nil {
			guard.logger.Warn("forwarded command rejected", slog.Any("error", err))
			reply = replyErrPrefix + err.Error()
		}
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		guard.logger.Debug("command connection", slog.Any("error", err))
	}
}

func (guard *InstanceGuard) dispatch(ctx context.Context, data []byte) error {
	cmd, err := command.Decode(data)
	if err != nil {
		return err
	}

	guard.mu.Lock()
	submit := guard.submit
	if submit == nil {
		submit = guard.fallback
	}
	guard.mu.Unlock()

	if submit == nil {
		return ErrNoSession
	}
	guard.logger.Debug("forwarded command", slog.String("action", string(cmd.Action)))
	return submit(ctx, cmd)
}

// SendCommand forwards cmd to the instance running as appName.
func SendCommand(ctx context.Context, appName string, cmd command.Command) error {
	return sendCommand(ctx, InstanceAddress(appName), cmd)
}

func sendCommand(ctx context.Context, address string, cmd command.Command) error {
	data, err := command.Encode(cmd)
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("connect to running instance: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply != replyOK {
		return fmt.Errorf("running instance: %s", strings.TrimPrefix(reply, replyErrPrefix))
	}
	return nil
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
