package tools

// listResult is the service's standard collection envelope.
type listResult[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

// identityRef is the reduced identity projection kept in tool output.
type identityRef struct {
	DisplayName string `json:"displayName,omitempty"`
	UniqueName  string `json:"uniqueName,omitempty"`
}
