package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"auto_report_generator/publisher"
	"auto_report_generator/workflow"
)

const recentEvents = 20

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

const wsWriteTimeout = 10 * time.Second

type runCreateReq struct {
	Topic          string `json:"topic" binding:"required"`
	Context        string `json:"context"`
	MaxTransitions int    `json:"max_transitions" binding:"gte=0"`
}

type runResp struct {
	RunID          string           `json:"run_id"`
	Topic          string           `json:"topic"`
	Status         string           `json:"status"`
	Outcome        workflow.Outcome `json:"outcome,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Error          string           `json:"error,omitempty"`
	ChapterIndex   int              `json:"chapter_index"`
	ChapterCount   int              `json:"chapter_count"`
	DocumentLength int              `json:"document_length"`
	Outline        []string         `json:"outline,omitempty"`
	Transitions    int              `json:"transitions,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Events         []workflow.Event `json:"events,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	running := 0
	for _, e := range s.store.list() {
		if !e.view().finished {
			running++
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "running": running})
}

func (s *Server) handleRunCreate(c *gin.Context) {
	var req runCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	id := s.Start(workflow.Request{
		Topic:           req.Topic,
		UploadedContext: req.Context,
		MaxTransitions:  req.MaxTransitions,
	})
	c.JSON(http.StatusAccepted, gin.H{"run_id": id, "status": statusRunning})
}

func (s *Server) handleRunList(c *gin.Context) {
	entries := s.store.list()
	out := make([]runResp, 0, len(entries))
	for _, e := range entries {
		resp := describe(e)
		resp.Events = nil
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) handleRunGet(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, describe(entry))
}

func (s *Server) handleRunCancel(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	if entry.view().finished {
		c.JSON(http.StatusOK, gin.H{"run_id": entry.id, "status": statusFinished})
		return
	}
	entry.cancel()
	s.logger.Info("run cancel requested", "run_id", entry.id)
	c.JSON(http.StatusAccepted, gin.H{"run_id": entry.id, "status": "canceling"})
}

func (s *Server) handleDocument(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	v := entry.view()
	if !v.finished {
		errorJSON(c, http.StatusConflict, errors.New("run still in progress"))
		return
	}
	if !v.result.Usable() {
		errorJSON(c, http.StatusNotFound, errors.New(v.result.Summary()))
		return
	}

	title := s.opts.Output.Title
	if title == "" {
		title = entry.topic
	}
	md := publisher.Compose(publisher.ExportParams{
		Title:    title,
		Markdown: v.result.Document,
		Time:     v.finishedAt,
		Partial:  v.result.Outcome != workflow.OutcomeCompleted,
	})
	name := publisher.FileName(s.opts.Output.Prefix, v.finishedAt)
	switch c.DefaultQuery("format", "md") {
	case "md":
		c.Header("Content-Disposition", `attachment; filename="`+name+`.md"`)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
	case "html":
		body, err := publisher.RenderHTML(md)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
	default:
		errorJSON(c, http.StatusBadRequest, errors.New("format must be md or html"))
	}
}

// handleEvents streams a run's progress over a websocket: first the events
// already recorded, then live ones until the run terminates.
func (s *Server) handleEvents(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "run_id", entry.id, "error", err)
		return
	}
	defer ws.Close()

	past, live, unsubscribe := entry.recorder.Subscribe()
	defer unsubscribe()

	// The reader only notices the client going away.
	go func() {
		for {
			if _, _, err := ws.NextReader(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	send := func(ev workflow.Event) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := ws.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed", "run_id", entry.id, "error", err)
			return false
		}
		return true
	}
	for _, ev := range past {
		if !send(ev) {
			return
		}
	}
	for ev := range live {
		if !send(ev) {
			return
		}
	}
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(wsWriteTimeout))
}

func describe(e *runEntry) runResp {
	v := e.view()
	resp := runResp{
		RunID:     e.id,
		Topic:     e.topic,
		Status:    statusRunning,
		CreatedAt: e.created,
	}
	events := e.recorder.Events()
	if n := len(events); n > 0 {
		last := events[n-1]
		resp.ChapterIndex = last.ChapterIndex
		resp.ChapterCount = last.ChapterCount
		resp.DocumentLength = last.DocumentLength
		if n > recentEvents {
			events = events[n-recentEvents:]
		}
		resp.Events = events
	}
	if v.finished {
		resp.Status = statusFinished
		resp.Outcome = v.result.Outcome
		resp.Summary = v.result.Summary()
		resp.Outline = v.result.Outline
		resp.Transitions = v.result.Transitions
		resp.ChapterIndex = v.result.ChaptersDone
		resp.ChapterCount = len(v.result.Outline)
		resp.DocumentLength = len(v.result.Document)
		if v.err != nil {
			resp.Error = v.err.Error()
		}
	}
	return resp
}
