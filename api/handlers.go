package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vkozyrev/dogwalk/game/app"
	"github.com/vkozyrev/dogwalk/game/model"
	"github.com/vkozyrev/dogwalk/game/session"
	"github.com/vkozyrev/dogwalk/storage/records"
)

// coord renders a coordinate with exactly one decimal place, matching
// the format clients expect ("10.0", not "10").
type coord float64

func (c coord) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(c), 'f', 1, 64), nil
}

type mapSummaryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type roadJSON struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type buildingJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeJSON struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type mapJSON struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Roads     []roadJSON        `json:"roads"`
	Buildings []buildingJSON    `json:"buildings"`
	Offices   []officeJSON      `json:"offices"`
	LootTypes []json.RawMessage `json:"lootTypes"`
}

func mapToJSON(m *model.Map) mapJSON {
	out := mapJSON{
		ID:        string(m.ID()),
		Name:      m.Name(),
		Roads:     []roadJSON{},
		Buildings: []buildingJSON{},
		Offices:   []officeJSON{},
		LootTypes: []json.RawMessage{},
	}
	for _, r := range m.Roads() {
		rj := roadJSON{X0: r.Start.X, Y0: r.Start.Y}
		if r.IsHorizontal() {
			end := r.End.X
			rj.X1 = &end
		} else {
			end := r.End.Y
			rj.Y1 = &end
		}
		out.Roads = append(out.Roads, rj)
	}
	for _, b := range m.Buildings() {
		out.Buildings = append(out.Buildings, buildingJSON{X: b.X, Y: b.Y, W: b.W, H: b.H})
	}
	for _, o := range m.Offices() {
		out.Offices = append(out.Offices, officeJSON{
			ID: string(o.ID), X: o.Position.X, Y: o.Position.Y,
			OffsetX: o.Offset.DX, OffsetY: o.Offset.DY,
		})
	}
	for _, lt := range m.LootTypes() {
		out.LootTypes = append(out.LootTypes, lt.Raw)
	}
	return out
}

// handleListMaps returns the id and name of every map, in config order.
func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	summaries := []mapSummaryJSON{}
	for _, m := range s.app.Game().Maps() {
		summaries = append(summaries, mapSummaryJSON{ID: string(m.ID()), Name: m.Name()})
	}
	respondJSON(w, http.StatusOK, summaries)
}

// handleGetMap returns the full definition of one map, loot types echoed
// verbatim from the config.
func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	id := model.MapID(mux.Vars(r)["id"])
	m := s.app.Game().FindMap(id)
	if m == nil {
		respondError(w, http.StatusNotFound, codeMapNotFound, "Map not found")
		return
	}
	respondJSON(w, http.StatusOK, mapToJSON(m))
}

type joinRequest struct {
	UserName string `json:"userName"`
	MapID    string `json:"mapId"`
}

type joinResponse struct {
	AuthToken string `json:"authToken"`
	PlayerID  int    `json:"playerId"`
}

// handleJoin adds a player to a map's game session.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidArgument, "Join game request parse error")
		return
	}

	result, err := s.app.Join(model.MapID(req.MapID), req.UserName)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, joinResponse{
		AuthToken: string(result.Token),
		PlayerID:  result.PlayerID,
	})
}

type playerJSON struct {
	Name string `json:"name"`
}

// handlePlayers lists the players sharing the caller's session.
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request, token session.Token) {
	if !requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	players, err := s.app.ListPlayers(token)
	if err != nil {
		respondAppError(w, err)
		return
	}
	out := map[string]playerJSON{}
	for _, p := range players {
		out[strconv.Itoa(p.ID)] = playerJSON{Name: p.Name}
	}
	respondJSON(w, http.StatusOK, out)
}

type bagItemJSON struct {
	ID   int `json:"id"`
	Type int `json:"type"`
}

type statePlayerJSON struct {
	Pos   [2]coord      `json:"pos"`
	Speed [2]coord      `json:"speed"`
	Dir   string        `json:"dir"`
	Bag   []bagItemJSON `json:"bag"`
	Score int           `json:"score"`
}

type stateLootJSON struct {
	Type int      `json:"type"`
	Pos  [2]coord `json:"pos"`
}

type stateJSON struct {
	Players     map[string]statePlayerJSON `json:"players"`
	LostObjects map[string]stateLootJSON   `json:"lostObjects"`
}

func stateToJSON(doc app.StateDocument) stateJSON {
	out := stateJSON{
		Players:     map[string]statePlayerJSON{},
		LostObjects: map[string]stateLootJSON{},
	}
	for _, p := range doc.Players {
		pj := statePlayerJSON{
			Pos:   [2]coord{coord(p.Pos[0]), coord(p.Pos[1])},
			Speed: [2]coord{coord(p.Speed[0]), coord(p.Speed[1])},
			Dir:   p.Dir,
			Bag:   []bagItemJSON{},
			Score: p.Score,
		}
		for _, item := range p.Bag {
			pj.Bag = append(pj.Bag, bagItemJSON{ID: item.ID, Type: item.Type})
		}
		out.Players[strconv.Itoa(p.ID)] = pj
	}
	for _, obj := range doc.Loot {
		out.LostObjects[strconv.Itoa(obj.ID)] = stateLootJSON{
			Type: obj.Type,
			Pos:  [2]coord{coord(obj.Pos[0]), coord(obj.Pos[1])},
		}
	}
	return out
}

// EncodeState renders a state document in the wire format shared by the
// state endpoint and the websocket push.
func EncodeState(doc app.StateDocument) ([]byte, error) {
	return json.Marshal(stateToJSON(doc))
}

// handleState returns the dynamic state of the caller's session.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request, token session.Token) {
	if !requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	doc, err := s.app.State(token)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stateToJSON(doc))
}

type actionRequest struct {
	Move *string `json:"move"`
}

// handleAction applies a movement command to the caller's dog.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, token session.Token) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Move == nil {
		respondError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse action")
		return
	}
	move := *req.Move
	if move != "" {
		if _, ok := session.DirectionFromLetter(move); !ok {
			respondError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse action")
			return
		}
	}
	if err := s.app.Move(token, move); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct{}{})
}

type tickRequest struct {
	TimeDelta *int64 `json:"timeDelta"`
}

// handleTick advances game time manually. Available only when the
// server runs without its own ticker.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !s.opts.AllowTick {
		respondError(w, http.StatusBadRequest, codeBadRequest, "Invalid endpoint")
		return
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TimeDelta == nil || *req.TimeDelta < 0 {
		respondError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse tick request")
		return
	}
	s.app.Tick(time.Duration(*req.TimeDelta) * time.Millisecond)
	respondJSON(w, http.StatusOK, struct{}{})
}

type recordJSON struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"playTime"`
}

// handleRecords returns a leaderboard page ordered by score.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	start := 0
	maxItems := records.MaxPageSize
	query := r.URL.Query()
	if v := query.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid start parameter")
			return
		}
		start = n
	}
	if v := query.Get("maxItems"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid maxItems parameter")
			return
		}
		maxItems = n
	}
	if maxItems > records.MaxPageSize {
		respondError(w, http.StatusBadRequest, codeInvalidArgument, "maxItems must not exceed 100")
		return
	}

	page, err := s.app.Records(r.Context(), start, maxItems)
	if err != nil {
		respondAppError(w, err)
		return
	}
	out := []recordJSON{}
	for _, rec := range page {
		out = append(out, recordJSON{Name: rec.Name, Score: rec.Score, PlayTime: rec.PlayTime})
	}
	respondJSON(w, http.StatusOK, out)
}
