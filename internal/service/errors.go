package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// notFound maps a missing store record onto the service sentinel.
func notFound(err error, sentinel error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}
