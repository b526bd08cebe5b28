package questionnaire

import "fmt"

// ItemNotFoundError is returned when a label does not name an item in the document.
type ItemNotFoundError struct {
	Label string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.Label)
}
