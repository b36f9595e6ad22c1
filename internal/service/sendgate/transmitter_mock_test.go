package sendgate

import (
	"context"
	"sync"

	"github.com/casegate/casegate-backend/internal/domain"
)

var _ Transmitter = &TransmitterMock{}

type TransmitterMock struct {
	TransmitFunc func(ctx context.Context, t domain.Transmission) (domain.Receipt, error)

	calls struct {
		Transmit []struct {
			Ctx context.Context
			T   domain.Transmission
		}
	}
	lockTransmit sync.RWMutex
}

func (mock *TransmitterMock) Transmit(ctx context.Context, t domain.Transmission) (domain.Receipt, error) {
	if mock.TransmitFunc == nil {
		panic("TransmitterMock.TransmitFunc: method is nil but Transmitter.Transmit was just called")
	}
	callInfo := struct {
		Ctx context.Context
		T   domain.Transmission
	}{Ctx: ctx, T: t}
	mock.lockTransmit.Lock()
	mock.calls.Transmit = append(mock.calls.Transmit, callInfo)
	mock.lockTransmit.Unlock()
	return mock.TransmitFunc(ctx, t)
}

func (mock *TransmitterMock) TransmitCalls() []struct {
	Ctx context.Context
	T   domain.Transmission
} {
	mock.lockTransmit.RLock()
	calls := mock.calls.Transmit
	mock.lockTransmit.RUnlock()
	return calls
}
