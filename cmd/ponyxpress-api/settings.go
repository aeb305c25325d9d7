package main

import (
	"time"

	"github.com/ponyxpress/ponyxpress/config"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
)

// apiSettings is the config with defaults applied.
type apiSettings struct {
	httpAddr string
	location *time.Location

	sessionTTL    time.Duration
	secureCookies bool
	bcryptCost    int

	loginMaxAttempts int64
	loginWindow      time.Duration

	storageTimeout time.Duration
	activeRouteTTL time.Duration

	photoDir      string
	photoMaxBytes int64

	scanTopic  string
	routeTopic string
}

func resolveAPISettings(cfg *config.Config) (apiSettings, error) {
	p := cfg.PonyXpress
	s := apiSettings{
		httpAddr:         p.HTTPAddr,
		location:         time.UTC,
		sessionTTL:       time.Duration(p.SessionTTLMinutes) * time.Minute,
		secureCookies:    p.SecureCookies,
		bcryptCost:       p.BcryptCost,
		loginMaxAttempts: int64(p.LoginMaxAttempts),
		loginWindow:      time.Duration(p.LoginWindowSeconds) * time.Second,
		storageTimeout:   time.Duration(p.StorageTimeoutMS) * time.Millisecond,
		activeRouteTTL:   time.Duration(p.ActiveRouteTTLSeconds) * time.Second,
		photoDir:         p.PhotoDir,
		photoMaxBytes:    p.PhotoMaxBytes,
		scanTopic:        cfg.Kafka.ScanRecordedTopicName,
		routeTopic:       cfg.Kafka.RouteSavedTopicName,
	}

	if s.httpAddr == "" {
		s.httpAddr = ":8080"
	}
	if p.TimeZone != "" {
		loc, err := time.LoadLocation(p.TimeZone)
		if err != nil {
			return apiSettings{}, err
		}
		s.location = loc
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 12 * time.Hour
	}
	if s.loginMaxAttempts <= 0 {
		s.loginMaxAttempts = 10
	}
	if s.loginWindow <= 0 {
		s.loginWindow = 15 * time.Minute
	}
	if s.storageTimeout <= 0 {
		s.storageTimeout = 3 * time.Second
	}
	if s.activeRouteTTL <= 0 {
		s.activeRouteTTL = 5 * time.Minute
	}
	if s.photoDir == "" {
		s.photoDir = "data/photos"
	}
	if s.photoMaxBytes <= 0 {
		s.photoMaxBytes = photostore.DefaultMaxBytes
	}
	if s.scanTopic == "" {
		s.scanTopic = messages.TopicScanRecorded
	}
	if s.routeTopic == "" {
		s.routeTopic = messages.TopicRouteSaved
	}
	return s, nil
}
