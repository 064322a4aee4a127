package bootstrap

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// Loadenv reads .env files into the process environment before the config is
// parsed. Variables already set in the environment win.
func Loadenv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Println("no .env file found, using process environment")
			return
		}
		log.Printf("failed to load .env: %v", err)
	}
}
