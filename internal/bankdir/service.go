// Package bankdir resolves SWIFT codes and IBANs to bank metadata through a
// layered lookup chain: in-memory map, Redis, the local directory table, and
// finally the external directory providers.
//
// ==============================================================================
// BANK DIRECTORY SERVICE - internal/bankdir/service.go
// ==============================================================================
package bankdir

import (
	"context"
	"strings"
	"sync"
	"time"

	"payreq/internal/domain"
	"payreq/pkg/errors"
	"payreq/pkg/logger"
)

// SWIFT/BIC codes are 8 (head office) or 11 (branch) characters; lookups
// only fire at exactly those lengths so we never query on every keystroke.
const (
	swiftShortLen = 8
	swiftLongLen  = 11
	ibanMinLookup = 19
)

// Service provides bank identifier resolution with caching.
type Service struct {
	repo      Repository
	cache     DirectoryCache
	providers []Provider
	logger    logger.Logger
	cacheTTL  time.Duration
	mu        sync.RWMutex
	memory    map[string]*domain.BankInfo
}

// Repository defines persistence for directory entries already resolved.
type Repository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.BankInfo, error)
	Upsert(ctx context.Context, identifier string, info *domain.BankInfo) error
}

// DirectoryCache defines cache operations for directory entries.
type DirectoryCache interface {
	Get(ctx context.Context, identifier string) (*domain.BankInfo, error)
	Set(ctx context.Context, identifier string, info *domain.BankInfo, ttl time.Duration) error
}

// Provider supplies directory records from an external source.
type Provider interface {
	Name() string
	LookupSwift(ctx context.Context, code string) (*domain.BankInfo, error)
	LookupIBAN(ctx context.Context, iban string) (*domain.BankInfo, error)
}

// NewService constructs a directory Service. repo and cache may be nil; the
// chain simply skips the missing layers.
func NewService(repo Repository, cache DirectoryCache, providers []Provider, cacheTTL time.Duration, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		providers: providers,
		logger:    log,
		cacheTTL:  cacheTTL,
		memory:    make(map[string]*domain.BankInfo),
	}
}

// ShouldResolveSwift reports whether the typed code has reached a length
// worth a directory lookup.
func ShouldResolveSwift(code string) bool {
	n := len(NormalizeIdentifier(code))
	return n == swiftShortLen || n == swiftLongLen
}

// ShouldResolveIBAN reports whether the typed IBAN has reached a length
// worth a directory lookup.
func ShouldResolveIBAN(iban string) bool {
	return len(NormalizeIdentifier(iban)) >= ibanMinLookup
}

// NormalizeIdentifier upper-cases and strips spaces from a typed identifier.
func NormalizeIdentifier(identifier string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(identifier), " ", ""))
}

// ResolveSwift resolves a SWIFT/BIC code to bank metadata.
func (s *Service) ResolveSwift(ctx context.Context, code string) (*domain.BankInfo, error) {
	normalized := NormalizeIdentifier(code)
	if !ShouldResolveSwift(normalized) {
		return nil, errors.ErrIdentifierTooShort
	}
	return s.resolve(ctx, domain.IdentifierSwift, normalized)
}

// ResolveIBAN resolves an IBAN to bank metadata.
func (s *Service) ResolveIBAN(ctx context.Context, iban string) (*domain.BankInfo, error) {
	normalized := NormalizeIdentifier(iban)
	if !ShouldResolveIBAN(normalized) {
		return nil, errors.ErrIdentifierTooShort
	}
	return s.resolve(ctx, domain.IdentifierIBAN, normalized)
}

func (s *Service) resolve(ctx context.Context, kind domain.IdentifierKind, identifier string) (*domain.BankInfo, error) {
	// In-memory first
	s.mu.RLock()
	if info, ok := s.memory[identifier]; ok {
		s.mu.RUnlock()
		return info, nil
	}
	s.mu.RUnlock()

	// Distributed cache
	if s.cache != nil {
		if info, err := s.cache.Get(ctx, identifier); err == nil && info != nil {
			s.remember(identifier, info)
			return info, nil
		}
	}

	// Local directory table
	if s.repo != nil {
		if info, err := s.repo.FindByIdentifier(ctx, identifier); err == nil && info != nil {
			s.writeBack(ctx, identifier, info, false)
			return info, nil
		}
	}

	// External providers, in order
	for _, provider := range s.providers {
		info, err := s.lookup(ctx, provider, kind, identifier)
		if err != nil {
			if err == errors.ErrBankNotFound {
				continue
			}
			s.logger.Warn("Directory provider failed", map[string]interface{}{
				"provider":   provider.Name(),
				"identifier": identifier,
				"error":      err.Error(),
			})
			continue
		}

		s.writeBack(ctx, identifier, info, true)
		return info, nil
	}

	return nil, errors.ErrBankNotFound
}

func (s *Service) lookup(ctx context.Context, p Provider, kind domain.IdentifierKind, identifier string) (*domain.BankInfo, error) {
	if kind == domain.IdentifierIBAN {
		return p.LookupIBAN(ctx, identifier)
	}
	return p.LookupSwift(ctx, identifier)
}

func (s *Service) remember(identifier string, info *domain.BankInfo) {
	s.mu.Lock()
	s.memory[identifier] = info
	s.mu.Unlock()
}

func (s *Service) writeBack(ctx context.Context, identifier string, info *domain.BankInfo, persist bool) {
	s.remember(identifier, info)

	if s.cache != nil {
		if err := s.cache.Set(ctx, identifier, info, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache directory entry", map[string]interface{}{
				"identifier": identifier,
				"error":      err.Error(),
			})
		}
	}

	if persist && s.repo != nil {
		if err := s.repo.Upsert(ctx, identifier, info); err != nil {
			s.logger.Error("Failed to store directory entry", map[string]interface{}{
				"identifier": identifier,
				"error":      err.Error(),
			})
		}
	}
}
