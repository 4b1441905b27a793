package server

// The response envelope mirrors the Home Assistant conversation API so
// the service can stand in for a conversation agent.

type speechPlain struct {
	Speech    string `json:"speech"`
	ExtraData any    `json:"extra_data"`
}

type speech struct {
	Plain speechPlain `json:"plain"`
}

type intentResponse struct {
	Speech       speech         `json:"speech"`
	Card         map[string]any `json:"card"`
	Language     string         `json:"language"`
	ResponseType string         `json:"response_type"`
	Data         map[string]any `json:"data"`
}

type processResponse struct {
	Response       intentResponse `json:"response"`
	ConversationID string         `json:"conversation_id"`
}

func actionDoneResponse(language, conversationID, text string) processResponse {
	return processResponse{
		Response: intentResponse{
			Speech:       speech{Plain: speechPlain{Speech: text}},
			Card:         map[string]any{},
			Language:     language,
			ResponseType: "action_done",
			Data: map[string]any{
				"targets": []any{},
				"success": []any{},
				"failed":  []any{},
			},
		},
		ConversationID: conversationID,
	}
}

func errorResponse(language, conversationID, text, code string) processResponse {
	return processResponse{
		Response: intentResponse{
			Speech:       speech{Plain: speechPlain{Speech: text}},
			Card:         map[string]any{},
			Language:     language,
			ResponseType: "error",
			Data:         map[string]any{"code": code},
		},
		ConversationID: conversationID,
	}
}
