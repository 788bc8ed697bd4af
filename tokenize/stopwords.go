package tokenize

import "github.com/blevesearch/bleve/v2/analysis"

// englishStopWords are dropped from English token runs. Besides function
// words the list removes vocabulary that appears in nearly every game
// description and carries no signal for similarity.
var englishStopWords = []string{
	"game", "games", "player", "players", "play", "playing",
	"the", "and", "but", "for", "with",
	"are", "was", "were", "been", "have", "has", "had",
	"does", "did", "will", "would", "could", "should",
	"may", "might", "can", "must",
	"this", "that", "these", "those",
	"prologue", "mode", "map", "item", "level", "skill",
}

// koreanStopWords are dropped from Hangul token runs.
var koreanStopWords = []string{
	"게임", "이다", "있다", "한다", "되다", "위해", "통해",
	"매우", "정말", "아주", "하다", "당신", "플레이어", "플레이",
	"모든", "사용", "다른", "않다", "많다", "없다",
	"다양하다", "새롭다", "되어다", "만들다", "사람", "가지",
	"자신", "대한", "우리", "시간", "가장", "보다", "같다",
	"오다", "가다", "따르다", "받다", "포함", "가능하다",
	"크다", "거나", "시작", "제공", "기능", "시스템",
	"추가", "무료", "그것", "그녀", "아니다", "이상",
	"동안", "명의", "진행", "기반", "개발", "목표",
	"방법", "모두", "최고", "하나", "모드", "아이템",
	"레벨", "스킬",
}

func stopTokens(lists ...[]string) analysis.TokenMap {
	m := analysis.NewTokenMap()
	for _, list := range lists {
		for _, w := range list {
			m.AddToken(w)
		}
	}
	return m
}
