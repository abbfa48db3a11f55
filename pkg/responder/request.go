package responder

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID 请求 ID 头，调用方未携带时自动生成
const HeaderRequestID = "X-Request-Id"

// unknownClient unix socket 对端没有地址时的占位
const unknownClient = "-"

// RequestInfo 每个请求的身份信息，放在 request context 中
type RequestInfo struct {
	ID         string
	ClientAddr string
}

type ctxKey struct{}

// FromContext 取出 RequestInfo
func FromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(RequestInfo)
	return info, ok
}

// WithRequestInfo 生成 RequestInfo 并写入 context，同时回写 X-Request-Id
func WithRequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		info := RequestInfo{ID: id, ClientAddr: clientAddr(r.RemoteAddr)}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// clientAddr unix socket 的 RemoteAddr 为空或 "@"（匿名）
func clientAddr(remote string) string {
	if remote == "" || remote == "@" {
		return unknownClient
	}
	return remote
}
