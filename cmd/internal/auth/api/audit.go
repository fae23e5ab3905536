package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"
)

// Audit entries are structured log lines; usernames are logged, passwords never.

func (h *Handler) auditSignupSuccess(ctx context.Context, ip net.IP, ua, username string) {
	h.audit(ctx, slog.LevelInfo, "auth.signup.success", ip, ua, slog.String("username", username))
}

func (h *Handler) auditSignupFailed(ctx context.Context, ip net.IP, ua, username, reason string) {
	h.audit(ctx, slog.LevelInfo, "auth.signup.failed", ip, ua,
		slog.String("username", username),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, ip net.IP, ua, username string) {
	h.audit(ctx, slog.LevelInfo, "auth.login.success", ip, ua, slog.String("username", username))
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, username, reason string) {
	h.audit(ctx, slog.LevelWarn, "auth.login.failed", ip, ua,
		slog.String("username", username),
		slog.String("reason", reason),
	)
}

func (h *Handler) audit(ctx context.Context, level slog.Level, action string, ip net.IP, ua string, attrs ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}

	base := make([]slog.Attr, 0, len(attrs)+2)
	if ip != nil {
		base = append(base, slog.String("ip", ip.String()))
	}
	if ua = strings.TrimSpace(ua); ua != "" {
		base = append(base, slog.String("user_agent", ua))
	}
	h.log.LogAttrs(ctx, level, action, append(base, attrs...)...)
}
