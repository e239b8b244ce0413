package tui

import (
	"github.com/matheuskafuri/phnews/internal/ai"
	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/model"
)

type productsLoadedMsg struct {
	entries []cache.Entry
}

type loadErrMsg struct {
	err error
}

type refreshDoneMsg struct {
	list  string
	count int
	err   error
}

type productEnrichedMsg struct {
	product model.Product
}

type summaryLoadedMsg struct {
	productID string
	result    ai.Result
}

type updateAvailableMsg struct {
	version string
}
