package llm

// HostedModels содержит список известных text-generation моделей
// HuggingFace Inference API, проверенных с этим сервисом.
var HostedModels = []ModelInfo{
	{
		ID:          "openchat/openchat-3.5",
		Name:        "OpenChat 3.5",
		Description: "Диалоговая модель по умолчанию, хороший баланс качества и скорости",
	},
	{
		ID:          "mistralai/Mistral-7B-Instruct-v0.2",
		Name:        "Mistral 7B Instruct",
		Description: "Компактная инструктивная модель Mistral",
	},
	{
		ID:          "HuggingFaceH4/zephyr-7b-beta",
		Name:        "Zephyr 7B",
		Description: "Дообученная на диалогах модель от HuggingFace",
	},
	{
		ID:          "meta-llama/Llama-2-7b-chat-hf",
		Name:        "Llama 2 7B Chat",
		Description: "Открытая чат-модель Meta (требует доступ)",
	},
}

// ModelInfo описывает информацию о модели.
type ModelInfo struct {
	ID          string // Идентификатор модели для API
	Name        string // Короткое название для отображения
	Description string // Описание модели
}

// GetModelByID возвращает информацию о модели по её ID.
// Если модель не найдена, возвращает nil.
func GetModelByID(modelID string) *ModelInfo {
	for _, m := range HostedModels {
		if m.ID == modelID {
			return &m
		}
	}
	return nil
}

// IsKnownModel проверяет, входит ли modelID в список проверенных моделей.
func IsKnownModel(modelID string) bool {
	return GetModelByID(modelID) != nil
}

// GetModelName возвращает короткое название модели по её ID.
// Если модель не найдена, возвращает сам ID.
func GetModelName(modelID string) string {
	if info := GetModelByID(modelID); info != nil {
		return info.Name
	}
	return modelID
}
