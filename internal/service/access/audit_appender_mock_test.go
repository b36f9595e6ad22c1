package access

import (
	"context"
	"sync"

	"github.com/casegate/casegate-backend/internal/domain"
)

var _ auditAppender = &auditAppenderMock{}

type auditAppenderMock struct {
	AppendFunc func(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error)

	calls struct {
		Append []struct {
			Ctx context.Context
			Rec domain.AuditRecord
		}
	}
	lockAppend sync.RWMutex
}

func (mock *auditAppenderMock) Append(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	if mock.AppendFunc == nil {
		panic("auditAppenderMock.AppendFunc: method is nil but auditAppender.Append was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Rec domain.AuditRecord
	}{Ctx: ctx, Rec: rec}
	mock.lockAppend.Lock()
	mock.calls.Append = append(mock.calls.Append, callInfo)
	mock.lockAppend.Unlock()
	return mock.AppendFunc(ctx, rec)
}

func (mock *auditAppenderMock) AppendCalls() []struct {
	Ctx context.Context
	Rec domain.AuditRecord
} {
	mock.lockAppend.RLock()
	calls := mock.calls.Append
	mock.lockAppend.RUnlock()
	return calls
}
