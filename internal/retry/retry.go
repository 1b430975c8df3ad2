// Package retry は上限付きリトライのポリシーと実行を提供する。
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy はリトライの回数と待機時間を表す。
// Multiplierが1以下の場合は固定間隔、1より大きい場合は指数的に待機時間を延ばす。
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// Backoff はポリシーの待機方式を表す文字列を返す（"fixed" または "exponential"）。
func (p Policy) Backoff() string {
	if p.Multiplier > 1 {
		return "exponential"
	}
	return "fixed"
}

// Attempts は実際に試行する回数を返す。1未満は1として扱う。
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// DelayFor はattempt回目（1始まり）の失敗後に待機する時間を返す。
// MaxDelayが正の場合はそれを上限とする。
func (p Policy) DelayFor(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	d := p.Delay
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// permanentError はリトライしても結果が変わらないエラー。
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent はerrをリトライ対象外としてマークする。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent はerrがPermanentでマークされているかを判定する。
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do はfnが成功するか、Permanentなエラーを返すか、試行回数の上限に達するまでfnを実行する。
// 待機中にctxがキャンセルされた場合はctx.Err()を返す。
// 最後の試行のエラーをそのまま返す（Permanentのマークは外す）。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts()

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(p.DelayFor(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
