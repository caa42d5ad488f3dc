package service

import (
	"github.com/wfunc/reel-slot/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Journal *JournalService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, log *zap.Logger) *Services {
	rounds := repository.NewRoundRepository(db)

	return &Services{
		Journal: NewJournalService(rounds, log),
	}
}
