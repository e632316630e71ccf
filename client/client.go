// Package client 封装远端推理与文件下载接口的 HTTP 客户端，
// 以及带指数退避的重试包装器.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/ragcheck/internal/metrics"
	"github.com/BaSui01/ragcheck/types"
)

// Config 远端接口配置.
type Config struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
	// RequestsPerSecond 全局礼貌性限速，0 表示不限速.
	// 与编排器的行间固定延迟相互独立.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// Request 一次推理请求.
type Request struct {
	ChatbotID      string `json:"chatbot_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	// KnowledgeBaseIDs 可选的检索范围过滤
	KnowledgeBaseIDs []string `json:"knowledge_base_ids,omitempty"`
}

// Reply 推理应答：会话标识、回复文本、检索文本片段与文件引用.
type Reply struct {
	ConversationID string                 `json:"conversation_id"`
	Content        string                 `json:"content"`
	Chunks         []types.RetrievalChunk `json:"chunks"`
	Citations      []types.FileCitation   `json:"citations"`
}

// Chatbot 远端可用的聊天机器人.
type Chatbot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Remote 是编排器依赖的远端操作集合.
type Remote interface {
	SendMessage(ctx context.Context, req Request) (*Reply, error)
	DownloadFile(ctx context.Context, kbID, fileID string) ([]byte, error)
}

// Client 远端 API 客户端.
// 认证使用 Api-Key 请求头；超时由底层 http.Client 按调用强制执行.
type Client struct {
	cfg       Config
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	collector *metrics.Collector
	tracer    trace.Tracer
}

// NewClient 创建客户端.
func NewClient(cfg Config, collector *metrics.Collector, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		cfg:       cfg,
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		logger:    logger.With(zap.String("component", "client")),
		collector: collector,
		tracer:    otel.Tracer("ragcheck/client"),
	}
}

var _ Remote = (*Client)(nil)

// buildURL 拼接接口地址。base 未带 /api 时自动补上.
func (c *Client) buildURL(endpoint string) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	endpoint = strings.TrimLeft(endpoint, "/")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	return base + "/" + endpoint
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Api-Key "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return types.NewError(types.ErrTransientNetwork, "rate limiter wait cancelled").
			WithCause(err).WithRetryable(false)
	}
	return nil
}

// 与远端一致的线上载荷结构

type messagePayload struct {
	Content     string `json:"content"`
	Attachments []any  `json:"attachments"`
}

type completionRequest struct {
	Conversation     string         `json:"conversation,omitempty"`
	Message          messagePayload `json:"message"`
	IsStreaming      bool           `json:"isStreaming"`
	KnowledgeBaseIDs []string       `json:"knowledgeBaseIds,omitempty"`
}

type completionResponse struct {
	ConversationID string            `json:"conversationId"`
	Content        string            `json:"content"`
	Citations      []json.RawMessage `json:"citations"`
	CitationNodes  []json.RawMessage `json:"citationNodes"`
}

type citationNodePayload struct {
	ChatbotTextNode struct {
		Content string `json:"content"`
	} `json:"chatbotTextNode"`
}

type fileCitationPayload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Name     string `json:"name"`
}

// SendMessage 向指定聊天机器人发送消息并解析应答.
func (c *Client) SendMessage(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := c.tracer.Start(ctx, "client.SendMessage",
		trace.WithAttributes(attribute.String("chatbot_id", req.ChatbotID)))
	defer span.End()

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	payload := completionRequest{
		Conversation:     req.ConversationID,
		Message:          messagePayload{Content: req.Message, Attachments: []any{}},
		KnowledgeBaseIDs: req.KnowledgeBaseIDs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "marshal completion request").WithCause(err)
	}

	endpoint := c.buildURL(fmt.Sprintf("chatbots/%s/completions/", req.ChatbotID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build completion request").WithCause(err)
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observe("send_message", "transport_error", duration)
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		c.observe("send_message", fmt.Sprintf("http_%d", resp.StatusCode), duration)
		c.logger.Warn("send message failed",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
			zap.Duration("duration", duration))
		return nil, mapHTTPError(resp.StatusCode, msg)
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.observe("send_message", "decode_error", duration)
		return nil, types.NewError(types.ErrTransientServer, "decode completion response").
			WithCause(err).WithRetryable(true)
	}
	c.observe("send_message", "ok", duration)

	c.logger.Debug("message sent",
		zap.String("chatbot_id", req.ChatbotID),
		zap.String("conversation_id", decoded.ConversationID),
		zap.Int("reply_chars", len([]rune(decoded.Content))),
		zap.Int("citation_nodes", len(decoded.CitationNodes)),
		zap.Duration("duration", duration))

	return c.buildReply(&decoded), nil
}

// buildReply 把线上载荷转换为内部应答结构.
// 单个引用条目解析失败只丢弃该条目并记录 MALFORMED_CITATION，不影响整行.
func (c *Client) buildReply(decoded *completionResponse) *Reply {
	reply := &Reply{
		ConversationID: decoded.ConversationID,
		Content:        decoded.Content,
	}

	for i, raw := range decoded.CitationNodes {
		var node citationNodePayload
		if err := json.Unmarshal(raw, &node); err != nil {
			c.logger.Warn("malformed citation node, dropped",
				zap.Int("index", i),
				zap.Error(types.NewError(types.ErrMalformedCitation, "unmarshal citation node").WithCause(err)))
			continue
		}
		reply.Chunks = append(reply.Chunks, types.RetrievalChunk{
			Index:   i,
			Content: node.ChatbotTextNode.Content,
		})
	}

	for i, raw := range decoded.Citations {
		var cite fileCitationPayload
		if err := json.Unmarshal(raw, &cite); err != nil {
			c.logger.Warn("malformed file citation, dropped",
				zap.Int("index", i),
				zap.Error(types.NewError(types.ErrMalformedCitation, "unmarshal file citation").WithCause(err)))
			continue
		}
		filename := cite.Filename
		if filename == "" {
			filename = cite.Name
		}
		if filename == "" {
			continue
		}
		reply.Citations = append(reply.Citations, types.FileCitation{ID: cite.ID, Filename: filename})
	}

	return reply
}

// ListChatbots 获取可用的聊天机器人列表，用于连通性检查.
func (c *Client) ListChatbots(ctx context.Context) ([]Chatbot, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.buildURL("chatbots/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build chatbots request").WithCause(err)
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observe("list_chatbots", "transport_error", duration)
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		c.observe("list_chatbots", fmt.Sprintf("http_%d", resp.StatusCode), duration)
		return nil, mapHTTPError(resp.StatusCode, msg)
	}
	c.observe("list_chatbots", "ok", duration)

	// 远端可能返回 {results: [...]} 或裸数组
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrTransientNetwork, "read chatbots response").
			WithCause(err).WithRetryable(true)
	}
	var wrapped struct {
		Results []Chatbot `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}
	var plain []Chatbot
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, types.NewError(types.ErrTransientServer, "decode chatbots response").
			WithCause(err).WithRetryable(true)
	}
	return plain, nil
}

// DownloadFile 下载知识库文件原始内容.
// 文件不存在返回 NOT_FOUND；文件处于不可获取状态返回 TERMINAL_STATE，
// 两者都不会被重试包装器重试.
func (c *Client) DownloadFile(ctx context.Context, kbID, fileID string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "client.DownloadFile",
		trace.WithAttributes(
			attribute.String("knowledge_base_id", kbID),
			attribute.String("file_id", fileID)))
	defer span.End()

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.buildURL(fmt.Sprintf("knowledge-bases/%s/files/%s/download/", kbID, fileID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build download request").WithCause(err)
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observe("download_file", "transport_error", duration)
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		c.observe("download_file", fmt.Sprintf("http_%d", resp.StatusCode), duration)
		return nil, mapHTTPError(resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe("download_file", "read_error", duration)
		return nil, types.NewError(types.ErrTransientNetwork, "read file body").
			WithCause(err).WithRetryable(true)
	}
	c.observe("download_file", "ok", duration)
	return data, nil
}

func (c *Client) observe(operation, outcome string, duration time.Duration) {
	if c.collector != nil {
		c.collector.RecordRequest(operation, outcome, duration)
	}
}
