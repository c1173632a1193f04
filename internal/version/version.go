package version

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Service — имя сервиса в логах и метриках.
const Service = "tpoints"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию сборки, заданную через -ldflags.
func Info() (v, c, d string) { return version, commit, date }

func String() string {
	return fmt.Sprintf("%s version=%s commit=%s date=%s", Service, version, commit, date)
}

// Fields возвращает поля сборки для стартового лога.
func Fields() log.Fields {
	return log.Fields{"service": Service, "version": version, "commit": commit, "build_date": date}
}
