package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/emperorhan/tx-relayer/internal/chain/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err    error
	class  Class
	reason string
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{
		err:    err,
		class:  ClassTransient,
		reason: "explicit_transient",
	}
}

func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{
		err:    err,
		class:  ClassTerminal,
		reason: "explicit_terminal",
	}
}

// Classify decides whether an error proves a terminal outcome or leaves
// room for a retry. Broadcast callers treat anything transient as
// ambiguous: the transaction may or may not have reached a mempool, so
// the chain must be consulted before the reservation is resolved.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	// Cancellation can land after the payload hit the wire; it proves
	// nothing about whether the node accepted it, so callers must treat
	// it like any other ambiguous outcome.
	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTransient, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	if grpcStatus, ok := status.FromError(err); ok && grpcStatus.Code() != codes.Unknown {
		switch grpcStatus.Code() {
		case codes.Canceled, codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return Decision{Class: ClassTransient, Reason: "grpc_" + strings.ToLower(grpcStatus.Code().String())}
		default:
			return Decision{Class: ClassTerminal, Reason: "grpc_" + strings.ToLower(grpcStatus.Code().String())}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Decision{Class: ClassTransient, Reason: "net_timeout"}
		}
	}

	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		return classifyJSONRPCError(rpcErr)
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	return Decision{Class: ClassTransient, Reason: "unknown_transient_default"}
}

func classifyJSONRPCError(err *rpc.RPCError) Decision {
	// Node rejections carry meaningful messages; they prove the payload
	// was received and evaluated, so they are terminal for this attempt.
	lower := strings.ToLower(err.Message)
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "jsonrpc_rejected"}
	}
	if err.Code == -32603 || err.Code == -32005 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_transient"}
	}
	if err.Code <= -32000 && err.Code >= -32099 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_range"}
	}
	return Decision{Class: ClassTerminal, Reason: "jsonrpc_terminal"}
}

// IsAlreadyKnown reports whether the node rejected a broadcast because
// it already holds the exact same transaction. That is not a failure:
// an earlier delivery of the same signed bytes got through, so the
// transaction is live in the mempool.
func IsAlreadyKnown(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "already known") ||
		strings.Contains(lower, "known transaction")
}

// IsNonceTooLow reports whether the node rejected a transaction because
// its nonce was already consumed. On a replacement broadcast this means
// an earlier version of the transaction was mined.
func IsNonceTooLow(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"econnreset",
	"econnrefused",
	"too many requests",
	"rate limit",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
	"server closed idle connection",
}

// Note: "already known" is deliberately absent. It proves the opposite
// of a rejection; broadcast callers detect it with IsAlreadyKnown.
var terminalMessageTokens = []string{
	"nonce too low",
	"replacement transaction underpriced",
	"transaction underpriced",
	"invalid argument",
	"invalid params",
	"invalid sender",
	"method not found",
	"parse error",
	"execution reverted",
	"insufficient funds",
	"exceeds block gas limit",
	"intrinsic gas too low",
	"max fee per gas less than block base fee",
}
