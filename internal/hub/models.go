package hub

const StatusReceived = "received"

type Hub struct {
	Selector    string       `json:"selector" bson:"_id"`
	CreatedBy   string       `json:"createdBy" bson:"createdBy"`
	CreatedAt   int64        `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	Password    string       `json:"password,omitempty" bson:"password,omitempty"`
	Reach       float64      `json:"reach" bson:"reach"`
	Latitude    float64      `json:"latitude" bson:"latitude"`
	Longitude   float64      `json:"longitude" bson:"longitude"`
	Status      string       `json:"status" bson:"status"`
	Title       string       `json:"title,omitempty" bson:"title,omitempty"`
	Admin       []string     `json:"admin" bson:"admin"`
	MessageChat []HubMessage `json:"messageChat" bson:"messageChat"`
	// Version increments on every write and guards replacements.
	Version int64 `json:"version" bson:"version"`
}

type HubMessage struct {
	Selector  string         `json:"selector" bson:"selector"`
	CreatedBy string         `json:"createdBy" bson:"createdBy"`
	CreatedAt int64          `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	Password  string         `json:"password,omitempty" bson:"password,omitempty"`
	Reach     float64        `json:"reach" bson:"reach"`
	Latitude  float64        `json:"latitude" bson:"latitude"`
	Longitude float64        `json:"longitude" bson:"longitude"`
	Status    string         `json:"status" bson:"status"`
	Title     string         `json:"title,omitempty" bson:"title,omitempty"`
	Text      string         `json:"text,omitempty" bson:"text,omitempty"`
	Reactions []UserReaction `json:"reactions" bson:"reactions"`
}

type UserReaction struct {
	CreatedBy string       `json:"createdBy" bson:"createdBy" binding:"required"`
	Reaction  TypeReaction `json:"reaction" bson:"reaction"`
}

type TypeReaction struct {
	Selector   string `json:"selector" bson:"selector" binding:"required"`
	URL        string `json:"url,omitempty" bson:"url,omitempty"`
	URLPreview string `json:"urlPreview,omitempty" bson:"urlPreview,omitempty"`
}

// Same reports whether both reactions come from the same creator with the
// same reaction selector.
func (r UserReaction) Same(other UserReaction) bool {
	return r.CreatedBy == other.CreatedBy && r.Reaction.Selector == other.Reaction.Selector
}

func (h *Hub) normalize() {
	if h.Status == "" {
		h.Status = StatusReceived
	}
	if h.Admin == nil {
		h.Admin = []string{}
	}
	if h.MessageChat == nil {
		h.MessageChat = []HubMessage{}
	}
	for i := range h.MessageChat {
		h.MessageChat[i].normalize()
	}
}

func (m *HubMessage) normalize() {
	if m.Status == "" {
		m.Status = StatusReceived
	}
	if m.Reactions == nil {
		m.Reactions = []UserReaction{}
	}
}

// message returns the first message with the given selector.
func (h *Hub) message(id string) *HubMessage {
	for i := range h.MessageChat {
		if h.MessageChat[i].Selector == id {
			return &h.MessageChat[i]
		}
	}
	return nil
}
