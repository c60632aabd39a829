package grpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/bistro/pkg/apperr"
)

// Messages travel as google.protobuf.Struct carrying the same JSON shapes
// the HTTP gateway uses.

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, dst any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// toStatus maps a service error onto a gRPC status. Field violations ride
// along as a BadRequest detail.
func toStatus(err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return status.Error(codes.Internal, "internal error")
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		st := status.New(codes.InvalidArgument, appErr.Message)
		br := &errdetails.BadRequest{}
		for _, v := range appErr.Violations {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       v.Field,
				Description: v.Reason,
			})
		}
		if withDetails, derr := st.WithDetails(br); derr == nil {
			st = withDetails
		}
		return st.Err()
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, appErr.Message)
	case apperr.KindPersistence:
		return status.Error(codes.Internal, appErr.Message)
	default:
		return status.Error(codes.Unknown, appErr.Message)
	}
}

// fromStatus turns a gRPC error back into the service error kinds.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.InvalidArgument:
		var violations []apperr.FieldViolation
		for _, d := range st.Details() {
			if br, ok := d.(*errdetails.BadRequest); ok {
				for _, fv := range br.GetFieldViolations() {
					violations = append(violations, apperr.FieldViolation{Field: fv.GetField(), Reason: fv.GetDescription()})
				}
			}
		}
		if len(violations) == 0 {
			violations = []apperr.FieldViolation{{Reason: st.Message()}}
		}
		return apperr.Validation(violations...)
	case codes.NotFound:
		return &apperr.Error{Kind: apperr.KindNotFound, Message: st.Message()}
	case codes.Internal:
		return &apperr.Error{Kind: apperr.KindPersistence, Message: st.Message()}
	default:
		return fmt.Errorf("order service: %w", err)
	}
}
