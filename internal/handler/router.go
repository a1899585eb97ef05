package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/likeness-ai/command-center/backend/internal/handler/chat"
	"github.com/likeness-ai/command-center/backend/internal/handler/dashboard"
	"github.com/likeness-ai/command-center/backend/internal/handler/ideas"
	"github.com/likeness-ai/command-center/backend/internal/handler/legal"
	"github.com/likeness-ai/command-center/backend/internal/handler/scanner"
	"github.com/likeness-ai/command-center/backend/internal/handler/speech"
	"github.com/likeness-ai/command-center/backend/internal/handler/stream"
	middlewarePkg "github.com/likeness-ai/command-center/backend/internal/middleware"
	dashboardModel "github.com/likeness-ai/command-center/backend/internal/model/dashboard"
	chatService "github.com/likeness-ai/command-center/backend/internal/service/chat"
	"github.com/likeness-ai/command-center/backend/pkg/utils"
)

// Dependencies 路由依赖。可选的外部能力为空时对应接口返回 503
type Dependencies struct {
	Dashboard dashboardModel.Store
	Sessions  *chatService.Service

	Assistant  chat.Assistant
	VoiceNotes speech.VoiceNotes
	Scorer     ideas.Scorer
	Scanner    scanner.Scanner
	Drafter    legal.Drafter
	Audio      speech.AudioLoader

	Speech         speech.Options
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":    "ok",
				"assistant": deps.Assistant != nil,
				"speech":    deps.Audio != nil,
			})
		})

		dashboard.New(deps.Dashboard).RegisterRoutes(api)
		chat.New(deps.Sessions, deps.Assistant).RegisterRoutes(api)
		stream.New(deps.Assistant).RegisterRoutes(api)
		speech.New(deps.Audio, deps.Sessions, deps.VoiceNotes, deps.Speech).RegisterRoutes(api)

		if deps.Scorer != nil {
			ideas.New(deps.Scorer).RegisterRoutes(api)
		} else {
			api.HandleFunc("/ideas/*", unavailable("idea scoring"))
			api.HandleFunc("/content/*", unavailable("content analysis"))
		}

		if deps.Scanner != nil {
			scanner.New(deps.Scanner).RegisterRoutes(api)
		} else {
			api.HandleFunc("/scanner/*", unavailable("face scanner"))
		}

		if deps.Drafter != nil {
			legal.New(deps.Drafter).RegisterRoutes(api)
		} else {
			api.HandleFunc("/legal/*", unavailable("legal drafting"))
		}
	})

	return r
}

func unavailable(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusServiceUnavailable, feature+" unavailable")
	}
}
