package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stratflow-go/internal/model"
	"stratflow-go/internal/service"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ReviewHandler 负责 AI 评审：一次性评审、评审历史以及 WebSocket 流式评审。
type ReviewHandler struct {
	reviewService service.ReviewService
	userService   service.UserService
	jwtManager    *token.JWTManager
}

// NewReviewHandler 创建一个新的 ReviewHandler。
func NewReviewHandler(reviewService service.ReviewService, userService service.UserService, jwtManager *token.JWTManager) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		userService:   userService,
		jwtManager:    jwtManager,
	}
}

func (h *ReviewHandler) review(c *gin.Context, kind string) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.ReviewRequest
	if !bindJSON(c, "Review", &req) {
		return
	}
	req.Kind = kind
	answer, err := h.reviewService.Review(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, "Review", err)
		return
	}
	success(c, gin.H{"review": answer})
}

// OKRReview 评审一个 OKR 的设置质量。
func (h *ReviewHandler) OKRReview(c *gin.Context) {
	h.review(c, service.ReviewKindOKR)
}

// PADReview 评审一条周度 PAD 计划。
func (h *ReviewHandler) PADReview(c *gin.Context) {
	h.review(c, service.ReviewKindPAD)
}

// History 返回当前用户最近的评审记录。
func (h *ReviewHandler) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	records, err := h.reviewService.History(c.Request.Context(), user)
	if err != nil {
		respondError(c, "ReviewHistory", err)
		return
	}
	success(c, records)
}

// GetStopToken 返回一个可用于停止流式评审的令牌。
func (h *ReviewHandler) GetStopToken(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tok, err := h.reviewService.IssueStopToken(c.Request.Context(), user)
	if err != nil {
		respondError(c, "GetStopToken", err)
		return
	}
	success(c, gin.H{"cmdToken": tok})
}

// wsMessage 是客户端发来的消息：评审请求或停止指令。
type wsMessage struct {
	service.ReviewRequest
	Type     string `json:"type"`
	CmdToken string `json:"_internal_cmd_token"`
}

// lockedConn 串行化对连接的写入，流式输出与控制消息可能来自不同 goroutine。
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedConn) WriteMessage(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(messageType, data)
}

func (l *lockedConn) writeJSON(v interface{}) {
	b, _ := json.Marshal(v)
	_ = l.WriteMessage(websocket.TextMessage, b)
}

func statusMessage(typ, message string) map[string]interface{} {
	now := time.Now()
	resp := map[string]interface{}{
		"type":      typ,
		"message":   message,
		"timestamp": now.UnixMilli(),
		"date":      now.Format("2006-01-02T15:04:05"),
	}
	if typ == "completion" {
		resp["status"] = "finished"
	}
	return resp
}

// authenticate 校验路径中的 access token 并加载用户。
func (h *ReviewHandler) authenticate(c *gin.Context) (*model.User, bool) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		fail(c, http.StatusUnauthorized, "无效的 token")
		return nil, false
	}
	if revoked, err := h.userService.IsTokenRevoked(c.Request.Context(), tokenString); err != nil || revoked {
		fail(c, http.StatusUnauthorized, "token 已失效")
		return nil, false
	}
	user, err := h.userService.GetProfile(claims.EntName, claims.UserID)
	if err != nil {
		fail(c, http.StatusUnauthorized, "用户不存在")
		return nil, false
	}
	return user, true
}

// Stream 处理一个 WebSocket 连接。同一时间只处理一个评审请求，
// 评审在独立的 goroutine 中进行，读循环可以随时接收停止指令。
func (h *ReviewHandler) Stream(c *gin.Context) {
	user, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立，用户: %s@%s", user.Username, user.EntName)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := &lockedConn{conn: conn}
	var (
		stopped atomic.Bool
		busy    atomic.Bool
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			cancel()
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			out.writeJSON(map[string]string{"error": "无效的消息格式"})
			continue
		}

		if msg.Type == "stop" {
			if h.reviewService.IsStopToken(ctx, user, msg.CmdToken) {
				log.Info("收到停止指令，正在中断流式响应...")
				stopped.Store(true)
				out.writeJSON(statusMessage("stop", "响应已停止"))
			}
			continue
		}

		if !busy.CompareAndSwap(false, true) {
			out.writeJSON(map[string]string{"error": "上一条评审尚未完成"})
			continue
		}
		stopped.Store(false)
		req := msg.ReviewRequest
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer busy.Store(false)
			err := h.reviewService.StreamReview(ctx, user, req, out, stopped.Load)
			if err != nil {
				log.Errorf("处理流式评审失败: %v", err)
				out.writeJSON(map[string]string{"error": err.Error()})
			}
			out.writeJSON(statusMessage("completion", "响应已完成"))
		}()
	}
}
