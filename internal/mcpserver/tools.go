package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/edvin/mailapi/internal/client"
	"github.com/edvin/mailapi/internal/model"
)

// MailAPI is the subset of the mail API the tools call. *client.Client
// satisfies it.
type MailAPI interface {
	Health(ctx context.Context) (*client.Health, error)
	ListDomains(ctx context.Context) ([]model.Domain, error)
	CreateDomain(ctx context.Context, name string) error
	DeleteDomain(ctx context.Context, name string) error
	ListMailboxes(ctx context.Context, domain string) ([]model.Mailbox, error)
	CreateMailbox(ctx context.Context, req client.CreateMailboxRequest) (*client.CreatedMailbox, error)
	DeleteMailbox(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, email, password string) error
	ListAliases(ctx context.Context, domain string) ([]model.Alias, error)
	CreateAlias(ctx context.Context, req client.CreateAliasRequest) (*client.CreatedAlias, error)
	DeleteAlias(ctx context.Context, email string) error
	Stats(ctx context.Context) (*model.Stats, error)
}

type annotation int

const (
	readOnly annotation = iota
	write
	idempotentWrite
	destructive
)

func annotate(a annotation) []mcp.ToolOption {
	switch a {
	case readOnly:
		return []mcp.ToolOption{mcp.WithReadOnlyHintAnnotation(true), mcp.WithDestructiveHintAnnotation(false), mcp.WithIdempotentHintAnnotation(true)}
	case idempotentWrite:
		return []mcp.ToolOption{mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(false), mcp.WithIdempotentHintAnnotation(true)}
	case destructive:
		return []mcp.ToolOption{mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(true), mcp.WithIdempotentHintAnnotation(false)}
	default:
		return []mcp.ToolOption{mcp.WithReadOnlyHintAnnotation(false), mcp.WithDestructiveHintAnnotation(false), mcp.WithIdempotentHintAnnotation(false)}
	}
}

func newTool(name, desc string, a annotation, params ...mcp.ToolOption) mcp.Tool {
	opts := append([]mcp.ToolOption{mcp.WithDescription(desc)}, annotate(a)...)
	return mcp.NewTool(name, append(opts, params...)...)
}

func domainFilter() mcp.ToolOption {
	return mcp.WithString("domain", mcp.Description("Only return entries whose address ends in @domain"))
}

// BuildTools returns the mail administration tools backed by api, with the
// overrides from cfg applied.
func BuildTools(api MailAPI, cfg *Config) []server.ServerTool {
	tools := []server.ServerTool{
		{
			Tool: newTool("health", "Check that the mail API and its database are reachable", readOnly),
			Handler: func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return result(api.Health(ctx))
			},
		},
		{
			Tool: newTool("list_domains", "List all mail domains", readOnly),
			Handler: func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return result(api.ListDomains(ctx))
			},
		},
		{
			Tool: newTool("create_domain", "Add a mail domain", write,
				mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name, e.g. example.com"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				domain, err := req.RequireString("domain")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return done(api.CreateDomain(ctx, domain), "Domain %s added", domain)
			},
		},
		{
			Tool: newTool("delete_domain", "Delete a mail domain", destructive,
				mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				domain, err := req.RequireString("domain")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return done(api.DeleteDomain(ctx, domain), "Domain %s deleted", domain)
			},
		},
		{
			Tool: newTool("list_mailboxes", "List mailboxes with their quota and usage", readOnly, domainFilter()),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return result(api.ListMailboxes(ctx, req.GetString("domain", "")))
			},
		},
		{
			Tool: newTool("create_mailbox", "Create a mailbox", write,
				mcp.WithString("email", mcp.Required(), mcp.Description("Local part of the address, before the @")),
				mcp.WithString("domain", mcp.Required(), mcp.Description("Domain of the address")),
				mcp.WithString("password", mcp.Required(), mcp.Description("Initial password, at least 8 characters")),
				mcp.WithNumber("quota_bytes", mcp.Description("Quota in bytes, defaults to 1000000000"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				in := client.CreateMailboxRequest{
					Email:    req.GetString("email", ""),
					Domain:   req.GetString("domain", ""),
					Password: req.GetString("password", ""),
				}
				if v, ok := req.GetArguments()["quota_bytes"]; ok && v != nil {
					q, err := integer(v)
					if err != nil {
						return mcp.NewToolResultError(err.Error()), nil
					}
					in.QuotaBytes = &q
				}
				return result(api.CreateMailbox(ctx, in))
			},
		},
		{
			Tool: newTool("delete_mailbox", "Delete a mailbox", destructive,
				mcp.WithString("email", mcp.Required(), mcp.Description("Full mailbox address"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				email, err := req.RequireString("email")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return done(api.DeleteMailbox(ctx, email), "Mailbox %s deleted", email)
			},
		},
		{
			Tool: newTool("change_mailbox_password", "Set a new password for a mailbox", idempotentWrite,
				mcp.WithString("email", mcp.Required(), mcp.Description("Full mailbox address")),
				mcp.WithString("password", mcp.Required(), mcp.Description("New password, at least 8 characters"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				email, err := req.RequireString("email")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return done(api.ChangePassword(ctx, email, req.GetString("password", "")), "Password changed for %s", email)
			},
		},
		{
			Tool: newTool("list_aliases", "List aliases and their destinations", readOnly, domainFilter()),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return result(api.ListAliases(ctx, req.GetString("domain", "")))
			},
		},
		{
			Tool: newTool("create_alias", "Create an alias forwarding to a destination address", write,
				mcp.WithString("alias", mcp.Required(), mcp.Description("Local part of the alias, before the @")),
				mcp.WithString("domain", mcp.Required(), mcp.Description("Domain of the alias")),
				mcp.WithString("destination", mcp.Required(), mcp.Description("Destination address"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return result(api.CreateAlias(ctx, client.CreateAliasRequest{
					Alias:       req.GetString("alias", ""),
					Domain:      req.GetString("domain", ""),
					Destination: req.GetString("destination", ""),
				}))
			},
		},
		{
			Tool: newTool("delete_alias", "Delete an alias", destructive,
				mcp.WithString("alias", mcp.Required(), mcp.Description("Full alias address"))),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				alias, err := req.RequireString("alias")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return done(api.DeleteAlias(ctx, alias), "Alias %s deleted", alias)
			},
		},
		{
			Tool: newTool("get_stats", "Report domain, mailbox and alias counts with quota usage", readOnly),
			Handler: func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return result(api.Stats(ctx))
			},
		},
	}

	if cfg == nil || len(cfg.Overrides) == 0 {
		return tools
	}
	out := tools[:0]
	for _, t := range tools {
		o, ok := cfg.Overrides[t.Tool.Name]
		if ok && o.Disabled {
			continue
		}
		if ok && o.Description != "" {
			t.Tool.Description = o.Description
		}
		out = append(out, t)
	}
	return out
}

func result[T any](v T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolError(err), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func done(err error, format string, args ...any) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(format, args...)), nil
}

// toolError surfaces API failures to the model as tool errors rather than
// protocol errors.
func toolError(err error) *mcp.CallToolResult {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultError(apiErr.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("API request failed: %s", err))
}

func integer(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, errors.New("quota_bytes must be an integer")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	default:
		return 0, errors.New("quota_bytes must be an integer")
	}
}
