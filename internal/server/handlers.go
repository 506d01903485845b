package server

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"

	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/assistant/tools"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type profileBody struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	Interests   string `json:"interests"`
	City        string `json:"city"`
}

type chatRequest struct {
	Message string        `json:"message"`
	History []historyTurn `json:"history"`
	Profile *profileBody  `json:"profile"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	if s.deps.Runner == nil {
		serviceUnavailable(c)
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	in := model.ChatInput{
		Message: req.Message,
		History: toSchemaHistory(req.History),
		Profile: toProfile(req.Profile),
	}

	reply, err := s.deps.Runner.Invoke(c.Request.Context(), in)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) handleVoice(c *gin.Context) {
	if s.deps.Voice == nil || s.deps.Runner == nil {
		serviceUnavailable(c)
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	defer file.Close()

	if s.cfg.MaxAudioSize > 0 && header.Size > s.cfg.MaxAudioSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file too large"})
		return
	}

	var reader io.Reader = file
	if s.cfg.MaxAudioSize > 0 {
		reader = io.LimitReader(file, s.cfg.MaxAudioSize+1)
	}
	audio, err := io.ReadAll(reader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read audio file"})
		return
	}
	if len(audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is empty"})
		return
	}

	voiceName := c.PostForm("voice")

	replyAudio, transcript, reply, err := s.deps.Voice.Process(c.Request.Context(), audio, voiceName, s.deps.Runner)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audio_base64":     base64.StdEncoding.EncodeToString(replyAudio),
		"transcribed_text": transcript,
		"reply_text":       reply,
	})
}

type quoteRequest struct {
	Description string   `json:"description"`
	Interests   []string `json:"interests"`
}

func (s *Server) handleQuote(c *gin.Context) {
	if s.deps.Quotes == nil {
		serviceUnavailable(c)
		return
	}

	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	resp, err := s.deps.Quotes.Generate(c.Request.Context(), req.Description, req.Interests)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type cvRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleCVAssistant(c *gin.Context) {
	if s.deps.CV == nil {
		serviceUnavailable(c)
		return
	}

	var req cvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := s.deps.CV.Ask(c.Request.Context(), req.Message)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (s *Server) handleNews(c *gin.Context) {
	if s.deps.News == nil {
		serviceUnavailable(c)
		return
	}

	limit := parseLimit(c.Query("limit"))
	result := s.deps.News.TopHeadlines(c.Request.Context(), limit)
	c.JSON(statusFor(result.Error), result)
}

func (s *Server) handleWeather(c *gin.Context) {
	if s.deps.Weather == nil {
		serviceUnavailable(c)
		return
	}

	result := s.deps.Weather.Current(c.Request.Context(), c.Query("city"), c.Query("country"))
	c.JSON(statusFor(result.Error), result)
}

func (s *Server) handleNewspapers(c *gin.Context) {
	if s.deps.Newspapers == nil {
		serviceUnavailable(c)
		return
	}

	limit := parseLimit(c.Query("limit"))
	result := s.deps.Newspapers.Headlines(c.Request.Context(), c.Query("source"), limit)
	c.JSON(statusFor(result.Error), result)
}

func serviceUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not configured"})
}

// statusFor maps adapter error-as-data results onto HTTP status: the
// adapters never fail the request, a failed lookup is still a 502 upstream
// signal for API consumers.
func statusFor(errMsg string) int {
	if errMsg == "" {
		return http.StatusOK
	}
	return http.StatusBadGateway
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return tools.DefaultNewsLimit
	}
	return tools.ClampNewsLimit(n)
}

func toSchemaHistory(turns []historyTurn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(t.Role)) {
		case "user":
			msgs = append(msgs, schema.UserMessage(content))
		case "assistant", "model":
			msgs = append(msgs, schema.AssistantMessage(content, nil))
		default:
			logx.Debug().Str("role", t.Role).Msg("Dropping history turn with unknown role")
		}
	}
	return msgs
}

func toProfile(p *profileBody) *model.Profile {
	if p == nil {
		return nil
	}
	return &model.Profile{
		Name:        p.Name,
		Phone:       p.Phone,
		Description: p.Description,
		Interests:   p.Interests,
		City:        p.City,
	}
}
