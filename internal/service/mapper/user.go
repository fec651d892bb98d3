package mapper

import (
	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/service/dto"
)

func UserV1(u *model.User, online bool) dto.UserV1 {
	name, _ := u.Username()
	return dto.UserV1{
		ID:          u.ID().String(),
		Username:    name,
		DisplayName: u.DisplayName(),
		Loaded:      true,
		Online:      online,
	}
}

// LoginResultV1 flattens the save result flags into their names.
func LoginResultV1(u *model.User, online bool, res *model.PlayerSaveResult) dto.LoginResultV1 {
	out := dto.LoginResultV1{User: UserV1(u, online)}
	if res == nil {
		return out
	}
	for _, o := range res.Outcomes() {
		out.Outcomes = append(out.Outcomes, o.String())
	}
	out.PreviousName = res.PreviousUsername()
	out.OtherUniqueIDs = uuidStrings(res.OtherUniqueIDs())
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	res := make([]string, len(ids))
	for i, id := range ids {
		res[i] = id.String()
	}
	return res
}
