package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidateScanner checks if the scanner name is in the allowed list
func ValidateScanner(name string) error {
	allowed := map[string]bool{
		"trivy": true,
		"grype": true,
	}

	if !allowed[strings.ToLower(name)] {
		return fmt.Errorf("invalid scanner: %s (allowed: trivy, grype)", name)
	}
	return nil
}

// ValidateImageRef validates Docker image references
func ValidateImageRef(image string) error {
	if image == "" {
		return fmt.Errorf("image reference cannot be empty")
	}

	// Docker image name pattern: [registry/]name[:tag][@digest]
	pattern := `^([a-z0-9]+([._-][a-z0-9]+)*(/[a-z0-9]+([._-][a-z0-9]+)*)*(:[a-zA-Z0-9._-]+)?(@sha256:[a-f0-9]{64})?)$`
	matched, _ := regexp.MatchString(pattern, strings.ToLower(image))
	if !matched {
		return fmt.Errorf("invalid Docker image reference format")
	}

	// Block dangerous patterns
	dangerous := []string{"../", "..", "$(", "`", "&", "|", ";", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(image, d) {
			return fmt.Errorf("invalid characters in image reference")
		}
	}

	return nil
}

// ValidateContextPath validates build context paths (for security)
func ValidateContextPath(path string) error {
	if path == "" {
		return fmt.Errorf("build context path cannot be empty")
	}

	// Clean the path
	cleaned := filepath.Clean(path)

	// Block path traversal attempts
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path traversal detected")
	}

	// Block absolute paths to sensitive directories
	blocked := []string{"/etc", "/proc", "/sys", "/dev", "/root", "/boot"}
	for _, b := range blocked {
		if strings.HasPrefix(cleaned, b) {
			return fmt.Errorf("access to %s is not allowed", b)
		}
	}

	// Block dangerous patterns
	dangerous := []string{"$(", "`", "&", "|", ";", "\n", "\r", "&&", "||"}
	for _, d := range dangerous {
		if strings.Contains(path, d) {
			return fmt.Errorf("invalid characters in path")
		}
	}

	return nil
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateRunID validates gate run ID format
func ValidateRunID(runID string) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	// UUID pattern with -gate suffix
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-gate$`
	matched, _ := regexp.MatchString(pattern, runID)
	if !matched {
		return fmt.Errorf("invalid run ID format")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
