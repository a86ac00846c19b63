package handler

import "elective-helper/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Elective *ElectiveHandler
	Session  *SessionHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Elective: NewElectiveHandler(svc.Elective),
		Session:  NewSessionHandler(svc.Session),
		Export:   NewExportHandler(svc.Export),
	}
}
