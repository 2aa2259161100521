package main

import (
	"testing"

	"github.com/mcdev12/auctionhouse/go/internal/auction/archive"
	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(archive.PostgresSchema())
	assert.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS auction_lots (", firstLine(stmts[0]))
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS auction_lots_session_game_idx ON auction_lots (session_id, game, round)", firstLine(stmts[1]))

	assert.Empty(t, splitStatements(" ;\n; "))
}
