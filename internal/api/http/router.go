package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/axenix_signal/internal/config"
	"github.com/immxrtalbeast/axenix_signal/internal/service"
	"github.com/pion/webrtc/v3"
)

type RouterDeps struct {
	Meetings *MeetingController
	Signal   *SignalController
	Rooms    service.RoomInspector
	HTTP     config.HTTPConfig
	WebRTC   config.WebRTCConfig
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = deps.HTTP.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Signal != nil {
		router.GET("/ws", deps.Signal.Connect)
	}

	api := router.Group("/api")

	iceServers := ICEServers(deps.WebRTC)
	api.GET("/ice-servers", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ice_servers": iceServers})
	})

	if deps.Rooms != nil {
		api.GET("/debug/rooms", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{
				"stats": deps.Rooms.Stats(),
				"rooms": deps.Rooms.Rooms(),
			})
		})
	}

	if deps.Meetings != nil {
		meetings := api.Group("/meetings")
		meetings.POST("", deps.Meetings.CreateMeeting)
		meetings.GET("", deps.Meetings.ListMeetings)
		meetings.GET("/:meetingID", deps.Meetings.GetMeeting)
		meetings.GET("/:meetingID/participants", deps.Meetings.ListParticipants)
		meetings.POST("/:meetingID/end", deps.Meetings.EndMeeting)
	}

	return router
}

// ICEServers builds the browser ICE configuration from the configured STUN and TURN urls.
func ICEServers(cfg config.WebRTCConfig) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(cfg.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: cfg.STUNServers})
	}
	if len(cfg.TURNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           cfg.TURNServers,
			Username:       cfg.TURNUsername,
			Credential:     cfg.TURNCredential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers
}
