package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/session"
	"github.com/cory-johannsen/gotchi/internal/storage/sqlite"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gotchi.battle.v1.BattleService"

// HistoryReader lists recorded battles for a creature.
type HistoryReader interface {
	History(ctx context.Context, creatureID int64, limit int) ([]sqlite.Entry, error)
}

// BattleServer is the method set registered under ServiceName. Requests and
// responses are google.protobuf.Struct messages.
type BattleServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcceptChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeclineChallenge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitMove(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deregister(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// BattleService exposes a BattleHandler over gRPC.
type BattleService struct {
	handler *BattleHandler
	repo    creature.Repository
	history HistoryReader
	logger  *zap.Logger
}

var _ BattleServer = (*BattleService)(nil)

// NewBattleService creates a BattleService. history may be nil, in which case
// the History method reports Unimplemented.
//
// Precondition: handler, repo and logger must be non-nil.
func NewBattleService(handler *BattleHandler, repo creature.Repository, history HistoryReader, logger *zap.Logger) *BattleService {
	return &BattleService{handler: handler, repo: repo, history: history, logger: logger}
}

// Register attaches the service to s.
func (b *BattleService) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&battleServiceDesc, b)
}

func field(in *structpb.Struct, name string) string {
	if v, ok := in.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func requireUser(in *structpb.Struct) (string, error) {
	id := field(in, "user_id")
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "user_id is required")
	}
	return id, nil
}

// toStatus maps domain errors onto gRPC status codes. User errors carry
// their notice as the message.
func (b *BattleService) toStatus(method string, err error) error {
	var ue *battle.UserError
	switch {
	case errors.As(err, &ue):
		return status.Error(codes.FailedPrecondition, ue.Notice)
	case errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, "you are not in a battle")
	case errors.Is(err, creature.ErrCreatureNotFound):
		return status.Error(codes.NotFound, "no gotchi found for that user")
	case errors.Is(err, session.ErrParticipantBusy):
		return status.Error(codes.AlreadyExists, "that player is already in a battle")
	case errors.Is(err, battle.ErrNoOpponentSpecies):
		return status.Error(codes.FailedPrecondition, "no wild opponents live nearby")
	case battle.IsCorrupt(err):
		return status.Error(codes.Aborted, "the battle was called off")
	}
	b.logger.Error("battle rpc failed", zap.String("method", method), zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func (b *BattleService) CreateSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	v, err := b.handler.CreateSession(ctx, user, field(in, "opponent_id"))
	if err != nil {
		return nil, b.toStatus("CreateSession", err)
	}
	return viewStruct(v)
}

func (b *BattleService) AcceptChallenge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	v, err := b.handler.Accept(ctx, user)
	if err != nil {
		return nil, b.toStatus("AcceptChallenge", err)
	}
	return viewStruct(v)
}

func (b *BattleService) DeclineChallenge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	if err := b.handler.Decline(ctx, user); err != nil {
		return nil, b.toStatus("DeclineChallenge", err)
	}
	return &structpb.Struct{}, nil
}

func (b *BattleService) SubmitMove(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	ident := field(in, "move")
	if ident == "" {
		return nil, status.Error(codes.InvalidArgument, "move is required")
	}
	res, err := b.handler.SubmitMove(ctx, user, ident)
	if err != nil {
		return nil, b.toStatus("SubmitMove", err)
	}
	return turnStruct(res)
}

func (b *BattleService) GetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	v, err := b.handler.GetSessionByUser(ctx, user)
	if err != nil {
		return nil, b.toStatus("GetSession", err)
	}
	return viewStruct(v)
}

func (b *BattleService) Deregister(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	if err := b.handler.DeregisterSession(ctx, user); err != nil {
		return nil, b.toStatus("Deregister", err)
	}
	return &structpb.Struct{}, nil
}

func (b *BattleService) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if b.history == nil {
		return nil, status.Error(codes.Unimplemented, "battle history is disabled")
	}
	user, err := requireUser(in)
	if err != nil {
		return nil, err
	}
	c, err := b.repo.GetCreatureByOwner(ctx, user)
	if err != nil {
		return nil, b.toStatus("History", err)
	}
	limit := int(in.GetFields()["limit"].GetNumberValue())
	entries, err := b.history.History(ctx, c.ID, limit)
	if err != nil {
		return nil, b.toStatus("History", err)
	}
	return historyStruct(entries)
}

type unaryCall func(BattleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BattleServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BattleServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var battleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSession", BattleServer.CreateSession),
		unary("AcceptChallenge", BattleServer.AcceptChallenge),
		unary("DeclineChallenge", BattleServer.DeclineChallenge),
		unary("SubmitMove", BattleServer.SubmitMove),
		unary("GetSession", BattleServer.GetSession),
		unary("Deregister", BattleServer.Deregister),
		unary("History", BattleServer.History),
	},
	Metadata: "gotchi/battle/v1/battle.proto",
}
