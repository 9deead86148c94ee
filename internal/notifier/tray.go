package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

const trayExecutablePrefix = "habitual-tray"

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// Tray delivers notifications to the habitual-tray companion app over its
// loopback webhook.
type Tray struct {
	client      *http.Client
	retry       utils.RetryPolicy
	durationMs  uint32
	callbackURL string
}

type TrayOption func(*Tray)

// WithRetry overrides how often a failed webhook call is retried.
func WithRetry(attempts int, delay time.Duration) TrayOption {
	return func(t *Tray) {
		t.retry = utils.RetryPolicy{Attempts: attempts, Delay: delay}
	}
}

// WithDuration sets how long the tray keeps a notification on screen.
func WithDuration(ms uint32) TrayOption {
	return func(t *Tray) { t.durationMs = ms }
}

// WithCallbackURL tells the tray where to post the user's action.
func WithCallbackURL(url string) TrayOption {
	return func(t *Tray) { t.callbackURL = url }
}

// WithHTTPClient replaces the client used for webhook calls.
func WithHTTPClient(c *http.Client) TrayOption {
	return func(t *Tray) { t.client = c }
}

type WebhookPayload struct {
	Title       string                      `json:"title"`
	Text        string                      `json:"text"`
	Identifier  string                      `json:"identifier"`
	Category    string                      `json:"category,omitempty"`
	Actions     []models.NotificationAction `json:"actions,omitempty"`
	UserInfo    map[string]string           `json:"user_info,omitempty"`
	DurationMs  uint32                      `json:"duration_ms"`
	CallbackURL string                      `json:"callback_url,omitempty"`
}

func NewTray(opts ...TrayOption) *Tray {
	t := &Tray{
		client:     &http.Client{Timeout: 5 * time.Second},
		retry:      utils.RetryPolicy{Attempts: constants.NotifyMaxRetries, Delay: constants.NotifyRetryDelay},
		durationMs: constants.NotificationDurationMs,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available checks that the tray app is running and its lockfile is sound.
func (t *Tray) Available(ctx context.Context) error {
	_, _, err := locateTray()
	return err
}

func (t *Tray) Deliver(ctx context.Context, req models.NotificationRequest) error {
	port, secret, err := locateTray()
	if err != nil {
		return err
	}

	payload := WebhookPayload{
		Title:       req.Title,
		Text:        req.Body,
		Identifier:  req.ID,
		Category:    req.Category,
		Actions:     CategoryActions(req.Category),
		UserInfo:    req.UserInfo,
		DurationMs:  t.durationMs,
		CallbackURL: t.callbackURL,
	}

	attempt := 0
	return utils.Retry(ctx, t.retry, func() error {
		attempt++
		err := t.send(ctx, port, secret, payload)
		if err != nil {
			logger.Debug("Tray delivery failed", "id", req.ID, "attempt", attempt, "error", err)
		}
		return err
	})
}

func locateTray() (string, string, error) {
	dir, err := GetTrayAppConfigDir()
	if err != nil {
		return "", "", err
	}
	return findAndValidateTrayProcess(filepath.Join(dir, constants.NotifierLockfileName))
}

// GetTrayAppConfigDir returns the directory holding the tray app's lockfile.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	// The tray may relocate its lockfile via settings.json
	data, err := os.ReadFile(filepath.Join(trayConfigDir, "settings.json"))
	if err == nil {
		var store struct {
			Settings struct {
				LockfileDir *string `json:"lockfile_dir"`
			} `json:"settings"`
		}
		if err := json.Unmarshal(data, &store); err == nil {
			if dir := store.Settings.LockfileDir; dir != nil && *dir != "" {
				return *dir, nil
			}
		}
	}

	return trayConfigDir, nil
}

// findAndValidateTrayProcess parses a "port|pid|secret" lockfile and checks
// the pid belongs to a live tray process.
func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", errors.New(trayExecutablePrefix + " is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", errors.New(trayExecutablePrefix + " process not running")
	}
	if !strings.HasPrefix(process.Executable(), trayExecutablePrefix) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, trayExecutablePrefix, process.Executable())
	}

	return port, secret, nil
}

func (t *Tray) send(ctx context.Context, port, secret string, payload WebhookPayload) error {
	url := fmt.Sprintf("http://127.0.0.1:%s", port)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.SecretHeader, secret)

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
