package erp_test

import (
	"context"

	"github.com/warp/erp-offline/generic"
)

// recordedCall captures one transport invocation.
type recordedCall struct {
	Method string
	Path   string
	ID     string
	Rec    generic.Record
}

// fakeTransport records calls and answers from canned responses. Shared by
// the erp package tests; the syncer tests carry their own.
type fakeTransport struct {
	Calls []recordedCall

	ListResult []generic.Record
	GetResult  generic.Record
	Err        error
}

func (f *fakeTransport) List(_ context.Context, path string) ([]generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "LIST", Path: path})
	return f.ListResult, f.Err
}

func (f *fakeTransport) Get(_ context.Context, path, id string) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "GET", Path: path, ID: id})
	return f.GetResult, f.Err
}

func (f *fakeTransport) Create(_ context.Context, path string, rec generic.Record) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "CREATE", Path: path, Rec: rec.DeepClone()})
	if f.Err != nil {
		return nil, f.Err
	}
	if f.GetResult != nil {
		return f.GetResult, nil
	}
	return rec, nil
}

func (f *fakeTransport) Update(_ context.Context, path, id string, rec generic.Record) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "UPDATE", Path: path, ID: id, Rec: rec.DeepClone()})
	return rec, f.Err
}

func (f *fakeTransport) Delete(_ context.Context, path, id string) error {
	f.Calls = append(f.Calls, recordedCall{Method: "DELETE", Path: path, ID: id})
	return f.Err
}

func (f *fakeTransport) FetchOne(_ context.Context, path string) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "FETCH", Path: path})
	return f.GetResult, f.Err
}
