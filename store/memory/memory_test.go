package memory

import (
	"testing"

	"github.com/undeconstructed/lastcard/game"
	"github.com/undeconstructed/lastcard/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) game.Store { return New() })
}
