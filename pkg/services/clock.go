package services

import "time"

// Timer は予約済みコールバックの取り消しハンドルです。
type Timer interface {
	Stop() bool
}

// Ticker は一定間隔の通知チャネルです。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock は現在時刻と遅延実行を抽象化します。テストでは偽の時計に差し替えます。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

// RealClock は標準のtimeパッケージに委譲するClockを返します。
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }

func (r realTicker) Stop() { r.t.Stop() }
