package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender belongs to a protected domain.
// Protected senders are never recommended for cleanup regardless of
// their engagement metrics.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new protected domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase)
	normalizedDomains := make([]string, len(domains))
	for i, domain := range domains {
		normalizedDomains[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Info("Initialized protected domain checker", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsProtected checks if the sender's domain is in the protected list
func (c *Checker) IsProtected(address string) bool {
	if len(c.domains) == 0 {
		return false
	}

	// Extract domain from email address
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])

	// Check if domain is protected
	for _, protected := range c.domains {
		if protected == domain {
			if c.logger != nil {
				c.logger.Debug("Sender domain is protected",
					zap.String("domain", domain),
					zap.String("address", address))
			}
			return true
		}
	}

	return false
}
