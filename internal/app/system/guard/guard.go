// Package guard decides whether an authenticated principal may use the
// dashboard. The decision is a role lookup in the users collection and
// fails closed: any error is "not an admin".
package guard

import (
	"context"
	"errors"

	"github.com/dalemusser/learnerdash/internal/app/system/metrics"
	"github.com/dalemusser/learnerdash/internal/app/system/timeouts"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"go.uber.org/zap"
)

// ErrNotFound is what a DocumentGetter returns for a missing document.
// Getters may wrap it.
var ErrNotFound = errors.New("document not found")

// DocumentGetter loads one users document by id.
type DocumentGetter interface {
	GetByID(ctx context.Context, id string) (models.UserDoc, error)
}

// Principal is the identity asserted by the identity provider.
type Principal struct {
	UID         string
	Email       string
	DisplayName string
	Provider    string
}

// AdminUser merges the principal with its users document.
type AdminUser struct {
	Principal
	Doc models.UserDoc
}

// Name prefers the document's name over the provider's display name.
func (u *AdminUser) Name() string {
	if n := u.Doc.Name(); n != "" {
		return n
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Result of a guard check. User is nil unless the document was found.
type Result struct {
	IsAdmin bool
	User    *AdminUser
}

// Guard checks principals against the users collection.
type Guard struct {
	docs    DocumentGetter
	isMiss  func(error) bool
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Guard. isNotFound recognizes the getter's not-found error;
// when nil, errors.Is(err, ErrNotFound) is used. m may be nil.
func New(docs DocumentGetter, isNotFound func(error) bool, logger *zap.Logger, m *metrics.Metrics) *Guard {
	if isNotFound == nil {
		isNotFound = func(err error) bool { return errors.Is(err, ErrNotFound) }
	}
	return &Guard{docs: docs, isMiss: isNotFound, log: logger, metrics: m}
}

// Check resolves a principal to an admin decision. It never returns an
// error and never panics on bad data.
func (g *Guard) Check(ctx context.Context, p *Principal) (res Result) {
	if p == nil || p.UID == "" {
		g.metrics.GuardDecision("anonymous")
		return Result{}
	}

	defer func() {
		if r := recover(); r != nil {
			g.log.Error("guard check panicked", zap.String("uid", p.UID), zap.Any("panic", r))
			g.metrics.GuardDecision("error")
			res = Result{}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	doc, err := g.docs.GetByID(ctx, p.UID)
	switch {
	case err != nil && g.isMiss(err):
		g.log.Info("guard: no users document for principal", zap.String("uid", p.UID))
		g.metrics.GuardDecision("unknown")
		return Result{}
	case err != nil:
		g.log.Warn("guard: role lookup failed", zap.String("uid", p.UID), zap.Error(err))
		g.metrics.GuardDecision("error")
		return Result{}
	}

	u := &AdminUser{Principal: *p, Doc: doc}
	if u.Email == "" {
		u.Email = doc.Email()
	}
	if doc.IsAdmin() {
		g.metrics.GuardDecision("admin")
		return Result{IsAdmin: true, User: u}
	}
	g.metrics.GuardDecision("denied")
	return Result{IsAdmin: false, User: u}
}
