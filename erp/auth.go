/*
auth.go - Always-online services (authentication, licensing)

Credentials and license state live on the server and cannot be faked
locally, so these services bypass offline routing entirely. While offline
every call fails with ErrUnsupportedOffline rather than degrading, so a
caller can never mistake a login or activation for having succeeded.
*/
package erp

import (
	"context"

	"github.com/warp/erp-offline/generic"
)

// Auth performs authentication against the server.
type Auth struct {
	remote   generic.Transport
	detector generic.Detector
}

func (a *Auth) Login(ctx context.Context, credentials generic.Record) (generic.Record, error) {
	if a.detector.IsOffline() {
		return nil, generic.ErrUnsupportedOffline
	}
	return a.remote.Create(ctx, "/auth/login", credentials)
}

func (a *Auth) Logout(ctx context.Context, token string) error {
	if a.detector.IsOffline() {
		return generic.ErrUnsupportedOffline
	}
	_, err := a.remote.Create(ctx, "/auth/logout", generic.Record{"token": token})
	return err
}

func (a *Auth) Me(ctx context.Context) (generic.Record, error) {
	if a.detector.IsOffline() {
		return nil, generic.ErrUnsupportedOffline
	}
	return a.remote.FetchOne(ctx, "/auth/me")
}

// Licensing activates and checks device licenses against the server.
type Licensing struct {
	remote   generic.Transport
	detector generic.Detector
}

func (l *Licensing) Activate(ctx context.Context, req generic.Record) (generic.Record, error) {
	if l.detector.IsOffline() {
		return nil, generic.ErrUnsupportedOffline
	}
	return l.remote.Create(ctx, "/licenses/activate", req)
}

func (l *Licensing) Check(ctx context.Context, req generic.Record) (generic.Record, error) {
	if l.detector.IsOffline() {
		return nil, generic.ErrUnsupportedOffline
	}
	return l.remote.Create(ctx, "/licenses/check", req)
}
