package vertex

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// TokenCache manages OAuth token caching with expiration
type TokenCache struct {
	token     string
	expiresAt time.Time
	mu        sync.RWMutex
}

var globalTokenCache = &TokenCache{}

// DetectCredentials resolves Application Default Credentials for the
// Vertex AI backend
func DetectCredentials() (*auth.Credentials, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes: []string{cloudPlatformScope},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect default credentials: %w", err)
	}
	return creds, nil
}

// GetAccessToken returns a bearer token, trying gcloud auth first and
// Application Default Credentials second. Tokens are cached for 55 minutes.
func GetAccessToken(ctx context.Context, logger interfaces.Logger) (string, error) {
	globalTokenCache.mu.RLock()
	if globalTokenCache.token != "" && time.Now().Before(globalTokenCache.expiresAt) {
		token := globalTokenCache.token
		globalTokenCache.mu.RUnlock()
		return token, nil
	}
	globalTokenCache.mu.RUnlock()

	token, err := getGCloudToken(ctx)
	if err != nil {
		if logger != nil {
			logger.Debugf("gcloud auth failed: %v", err)
		}
		token, err = getADCToken(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("all authentication methods failed. Last error: %w", err)
	}

	globalTokenCache.mu.Lock()
	globalTokenCache.token = token
	globalTokenCache.expiresAt = time.Now().Add(55 * time.Minute)
	globalTokenCache.mu.Unlock()
	return token, nil
}

func getGCloudToken(ctx context.Context) (string, error) {
	output, err := exec.CommandContext(ctx, "gcloud", "auth", "print-access-token").Output()
	if err != nil {
		return "", fmt.Errorf("gcloud auth failed: %w", err)
	}
	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", fmt.Errorf("gcloud returned empty token")
	}
	return token, nil
}

func getADCToken(ctx context.Context) (string, error) {
	creds, err := DetectCredentials()
	if err != nil {
		return "", err
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token from ADC: %w", err)
	}
	return token.Value, nil
}

// ClearTokenCache clears the cached token (useful for testing or forced refresh)
func ClearTokenCache() {
	globalTokenCache.mu.Lock()
	defer globalTokenCache.mu.Unlock()
	globalTokenCache.token = ""
	globalTokenCache.expiresAt = time.Time{}
}
