package steamapi

import "time"

// PlayerSummary is the subset of GetPlayerSummaries the service consumes.
type PlayerSummary struct {
	SteamID     string
	PersonaName string
	ProfileURL  string
	AvatarURL   string
	// CommunityVisibilityState 3 means the profile is public.
	CommunityVisibilityState int
}

// Public reports whether the profile exposes game and achievement data.
func (p *PlayerSummary) Public() bool {
	return p.CommunityVisibilityState == 3
}

// OwnedGame is a single entry from GetOwnedGames or GetRecentlyPlayedGames.
type OwnedGame struct {
	AppID           int64
	Name            string
	PlaytimeForever int
}

// PlayerAchievement is a single entry from GetPlayerAchievements.
type PlayerAchievement struct {
	APIName    string
	Achieved   bool
	UnlockTime time.Time
}

// SchemaAchievement is a single achievement definition from GetSchemaForGame.
type SchemaAchievement struct {
	Name        string
	DisplayName string
	Description string
	IconURL     string
	Hidden      bool
}

// GameSchema is the achievement schema of one game.
type GameSchema struct {
	GameName     string
	Achievements []SchemaAchievement
}

// --- wire formats (Steam's contract, decoded then discarded) ---

type vanityEnvelope struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
		Message string `json:"message"`
	} `json:"response"`
}

type playerSummariesEnvelope struct {
	Response struct {
		Players []struct {
			SteamID                  string `json:"steamid"`
			PersonaName              string `json:"personaname"`
			ProfileURL               string `json:"profileurl"`
			AvatarFull               string `json:"avatarfull"`
			CommunityVisibilityState int    `json:"communityvisibilitystate"`
		} `json:"players"`
	} `json:"response"`
}

type playerAchievementsEnvelope struct {
	PlayerStats struct {
		SteamID      string `json:"steamID"`
		GameName     string `json:"gameName"`
		Success      bool   `json:"success"`
		Error        string `json:"error"`
		Achievements []struct {
			APIName    string `json:"apiname"`
			Achieved   int    `json:"achieved"`
			UnlockTime int64  `json:"unlocktime"`
		} `json:"achievements"`
	} `json:"playerstats"`
}

type globalPercentagesEnvelope struct {
	AchievementPercentages struct {
		Achievements []struct {
			Name    string  `json:"name"`
			Percent float64 `json:"percent"`
		} `json:"achievements"`
	} `json:"achievementpercentages"`
}

type gameSchemaEnvelope struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Achievements []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				Description string `json:"description"`
				Icon        string `json:"icon"`
				Hidden      int    `json:"hidden"`
			} `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

type recentlyPlayedEnvelope struct {
	Response struct {
		TotalCount int `json:"total_count"`
		Games      []struct {
			AppID           int64  `json:"appid"`
			Name            string `json:"name"`
			PlaytimeForever int    `json:"playtime_forever"`
		} `json:"games"`
	} `json:"response"`
}
