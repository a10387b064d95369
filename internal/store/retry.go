package store

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps a transient backend failure that persisted
// through retries (spec: "store_unavailable").
var ErrStoreUnavailable = errors.New("store_unavailable")

// Transient is implemented by backend errors that are worth retrying
// (connection refused, timeout, etc). Backends that cannot distinguish
// transient from permanent failures may treat every error as transient.
type Transient interface {
	Transient() bool
}

// WithRetry wraps a Store so that any operation returning a transient error
// is retried up to 3 times with exponential backoff (spec §7) before
// surfacing ErrStoreUnavailable.
func WithRetry(s Store) Store {
	return &retrying{inner: s}
}

type retrying struct {
	inner Store
}

const maxAttempts = 4 // the first try plus up to 3 retries

func retry(ctx context.Context, fn func() error) error {
	var err error
	backoff := 25 * time.Millisecond
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var t Transient
		if !errors.As(err, &t) || !t.Transient() {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return errors.Join(ErrStoreUnavailable, err)
}

func (r *retrying) HGet(ctx context.Context, key, field string) (v string, ok bool, err error) {
	err = retry(ctx, func() error {
		v, ok, err = r.inner.HGet(ctx, key, field)
		return err
	})
	return
}

func (r *retrying) HSet(ctx context.Context, key, field, value string) error {
	return retry(ctx, func() error { return r.inner.HSet(ctx, key, field, value) })
}

func (r *retrying) HDel(ctx context.Context, key, field string) error {
	return retry(ctx, func() error { return r.inner.HDel(ctx, key, field) })
}

func (r *retrying) HGetAll(ctx context.Context, key string) (m map[string]string, err error) {
	err = retry(ctx, func() error {
		m, err = r.inner.HGetAll(ctx, key)
		return err
	})
	return
}

func (r *retrying) HKeys(ctx context.Context, key string) (ks []string, err error) {
	err = retry(ctx, func() error {
		ks, err = r.inner.HKeys(ctx, key)
		return err
	})
	return
}

func (r *retrying) HExists(ctx context.Context, key, field string) (b bool, err error) {
	err = retry(ctx, func() error {
		b, err = r.inner.HExists(ctx, key, field)
		return err
	})
	return
}

func (r *retrying) RPush(ctx context.Context, key, value string) error {
	return retry(ctx, func() error { return r.inner.RPush(ctx, key, value) })
}

func (r *retrying) LPush(ctx context.Context, key, value string) error {
	return retry(ctx, func() error { return r.inner.LPush(ctx, key, value) })
}

func (r *retrying) LRange(ctx context.Context, key string, start, stop int) (vs []string, err error) {
	err = retry(ctx, func() error {
		vs, err = r.inner.LRange(ctx, key, start, stop)
		return err
	})
	return
}

func (r *retrying) LTrim(ctx context.Context, key string, start, stop int) error {
	return retry(ctx, func() error { return r.inner.LTrim(ctx, key, start, stop) })
}

func (r *retrying) LLen(ctx context.Context, key string) (n int, err error) {
	err = retry(ctx, func() error {
		n, err = r.inner.LLen(ctx, key)
		return err
	})
	return
}

func (r *retrying) LSet(ctx context.Context, key string, index int, value string) error {
	return retry(ctx, func() error { return r.inner.LSet(ctx, key, index, value) })
}

func (r *retrying) LRemFirst(ctx context.Context, key, value string) (removed bool, err error) {
	err = retry(ctx, func() error {
		removed, err = r.inner.LRemFirst(ctx, key, value)
		return err
	})
	return
}

func (r *retrying) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	return retry(ctx, func() error { return r.inner.SetEX(ctx, key, value, ttl) })
}

func (r *retrying) Get(ctx context.Context, key string) (v string, ok bool, err error) {
	err = retry(ctx, func() error {
		v, ok, err = r.inner.Get(ctx, key)
		return err
	})
	return
}

func (r *retrying) Delete(ctx context.Context, key string) error {
	return retry(ctx, func() error { return r.inner.Delete(ctx, key) })
}

func (r *retrying) ScanKeys(ctx context.Context, pattern string) (ks []string, err error) {
	err = retry(ctx, func() error {
		ks, err = r.inner.ScanKeys(ctx, pattern)
		return err
	})
	return
}

func (r *retrying) CompareAndSetHashField(ctx context.Context, key, field, newValue, expectIfPresent string, expectIfPresentOK bool) (won bool, current string, err error) {
	err = retry(ctx, func() error {
		won, current, err = r.inner.CompareAndSetHashField(ctx, key, field, newValue, expectIfPresent, expectIfPresentOK)
		return err
	})
	return
}

func (r *retrying) Close() error {
	return r.inner.Close()
}
