package freeplacesdispatch

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// fakeGateway answers complete and throw-error calls and records the
// requests. A call made with a done context fails like a real gRPC call.
type fakeGateway struct {
	pb.GatewayClient

	mu        sync.Mutex
	completed []*pb.CompleteJobRequest
	thrown    []*pb.ThrowErrorRequest
	sendErrs  []error
}

func (g *fakeGateway) CompleteJob(ctx context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		g.sendErrs = append(g.sendErrs, err)
		return nil, err
	}
	g.completed = append(g.completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *fakeGateway) ThrowError(ctx context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		g.sendErrs = append(g.sendErrs, err)
		return nil, err
	}
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

// fakeJobClient builds real zeebe commands on top of fakeGateway.
type fakeJobClient struct {
	gateway *fakeGateway
}

func newFakeJobClient() *fakeJobClient {
	return &fakeJobClient{gateway: &fakeGateway{}}
}

func noRetry(context.Context, error) bool { return false }

func (c *fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c *fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c *fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}
