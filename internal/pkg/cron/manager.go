package cron

import (
	"Mercato/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	attachmentCleanJob *job.AttachmentCleanupJob
	presenceSweepJob   *job.PresenceSweepJob
}

func NewCronManager(attachmentCleanJob *job.AttachmentCleanupJob, presenceSweepJob *job.PresenceSweepJob) *Manager {
	return &Manager{
		engine:             cron.New(cron.WithSeconds()),
		attachmentCleanJob: attachmentCleanJob,
		presenceSweepJob:   presenceSweepJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@hourly", s.attachmentCleanJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 * * * * *", s.presenceSweepJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
