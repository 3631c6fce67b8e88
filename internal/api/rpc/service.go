package rpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/peer"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
	"github.com/GriffinCanCode/gatedev/internal/shared/id"
)

// DeviceServer is the gatedev.v1.Device service.
type DeviceServer interface {
	Open(context.Context, *OpenRequest) (*OpenResponse, error)
	Read(context.Context, *ReadRequest) (*ReadResponse, error)
	Write(context.Context, *WriteRequest) (*WriteResponse, error)
	Close(context.Context, *CloseRequest) (*CloseResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

// Service implements DeviceServer over a namespace and its device.
type Service struct {
	ns     *chardev.Namespace
	dev    *chardev.Device
	logger *zap.Logger
}

var _ DeviceServer = (*Service)(nil)

// NewService creates the device service.
func NewService(ns *chardev.Namespace, dev *chardev.Device, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ns: ns, dev: dev, logger: logger}
}

func (s *Service) Open(ctx context.Context, req *OpenRequest) (*OpenResponse, error) {
	actor := req.Actor
	if actor == "" {
		actor = "grpc"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			actor = p.Addr.String()
		}
	}

	sess, err := s.ns.Open(req.Endpoint, actor)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OpenResponse{Session: sess.Info()}, nil
}

func (s *Service) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	sess, err := s.ns.Session(id.SessionID(req.Session))
	if err != nil {
		return nil, toStatus(err)
	}

	count := req.Count
	if count < 0 {
		return nil, toStatus(fmt.Errorf("count %d: %w", count, chardev.ErrOutOfRange))
	}
	if count == 0 || count > sess.Capacity() {
		count = sess.Capacity()
	}

	p := make([]byte, count)
	var n int
	if req.Offset != nil {
		n, err = sess.ReadAt(ctx, p, *req.Offset)
	} else {
		n, err = sess.Read(ctx, p)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReadResponse{Data: p[:n]}, nil
}

func (s *Service) Write(_ context.Context, req *WriteRequest) (*WriteResponse, error) {
	sess, err := s.ns.Session(id.SessionID(req.Session))
	if err != nil {
		return nil, toStatus(err)
	}

	var n int
	if req.Offset != nil {
		n, err = sess.WriteAt(req.Data, *req.Offset)
	} else {
		n, err = sess.Write(req.Data)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &WriteResponse{Written: n}, nil
}

func (s *Service) Close(_ context.Context, req *CloseRequest) (*CloseResponse, error) {
	sess, err := s.ns.Session(id.SessionID(req.Session))
	if err != nil {
		return nil, toStatus(err)
	}
	if err := sess.Close(); err != nil {
		return nil, toStatus(err)
	}
	return &CloseResponse{}, nil
}

func (s *Service) Stats(context.Context, *StatsRequest) (*StatsResponse, error) {
	return &StatsResponse{
		Stats:     s.dev.Stats(),
		Endpoints: s.ns.Endpoints(),
	}, nil
}
