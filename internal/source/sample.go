package source

import (
	"context"
	"time"

	"github.com/deusflow/newstopics/internal/news"
)

type sampleItem struct {
	category, title, slug, description, publisher string
	hoursAgo                                      float64
}

var sampleItems = []sampleItem{
	{"Greece", "Greek parliament passes budget for 2025", "greece/budget-2025",
		"The Greek parliament has approved the 2025 budget, focusing on investment and social spending.", "Kathimerini", 2},
	{"Greece", "Wildfires hit Greek islands again", "greece/wildfires-islands",
		"Several islands in Greece are battling wildfires as high temperatures and strong winds persist.", "Ekathimerini", 10},
	{"Greece", "Greece's tourism numbers reach record high", "greece/tourism-record",
		"Tourism arrivals in Greece have surged, recording the highest numbers seen in the last decade.", "ERT", 20},
	{"Greece", "Greece and Turkey discuss maritime dispute", "greece/turkey-maritime-dispute",
		"Greek and Turkish officials met to de-escalate tensions over contested maritime borders in the Aegean Sea.", "AMNA", 5},
	{"Greece", "Greek stock market leaps after EU funds release", "greece/market-leap",
		"Athens stock exchange rallied after the European Union released structural funds to Greece.", "Capital.gr", 8},

	{"Netherlands", "Dutch government announces tax reform", "netherlands/tax-reform",
		"The Dutch government unveiled a sweeping tax reform aimed at simplifying the tax code and stimulating growth.", "NOS", 3},
	{"Netherlands", "Amsterdam housing crisis intensifies", "netherlands/housing-crisis",
		"Housing shortages and rising rent prices are exacerbating the housing crisis in Amsterdam.", "NRC", 12},
	{"Netherlands", "Netherlands leads in electric vehicle adoption", "netherlands/ev-adoption",
		"New data shows the Netherlands has one of the highest per-capita rates of electric vehicle ownership in Europe.", "de Volkskrant", 18},
	{"Netherlands", "Dutch scientists discover new particle", "netherlands/science-discovery",
		"Researchers at a Dutch university claim to have discovered a previously unknown subatomic particle.", "RTL Nieuws", 6},
	{"Netherlands", "Floods in Rotterdam prompt emergency response", "netherlands/floods-rotterdam",
		"Heavy rains have caused flooding in parts of Rotterdam, leading authorities to declare a state of emergency.", "Trouw", 15},

	{"Data Science", "New open source dataset released by Kaggle", "datascience/kaggle-dataset",
		"Kaggle has released a large open source dataset for machine learning practitioners, featuring millions of records.", "O'Reilly Radar", 4},
	{"Data Science", "Researchers propose novel data balancing method", "datascience/balancing-method",
		"A new technique for balancing imbalanced datasets has been proposed by data scientists, promising improved model accuracy.", "ACM Communications", 9},
	{"Data Science", "Company uses data science to reduce carbon footprint", "datascience/carbon-footprint",
		"An international corporation reports a 20% drop in emissions after leveraging data science to optimise logistics.", "Nature News", 14},
	{"Data Science", "Top 10 Data Science trends for 2025", "datascience/trends-2025",
		"Experts discuss the most significant trends set to shape data science in 2025, including causal inference and generative models.", "MIT Tech Review", 1},
	{"Data Science", "Conference on Responsible AI emphasises fairness metrics", "datascience/responsible-ai",
		"At a major data science conference, speakers stressed the importance of fairness and transparency in AI models.", "Papers with Code", 22},

	{"AI", "OpenAI releases GPT-5", "ai/openai-gpt5",
		"OpenAI has announced the release of GPT-5, the latest version of its large language model, touting significant improvements.", "OpenAI Blog", 3.5},
	{"AI", "Researchers debate AI safety regulations", "ai/ai-safety-regulations",
		"Leading AI experts gathered to debate the need for stricter regulations to ensure the safe development of artificial intelligence.", "DeepMind Blog", 11},
	{"AI", "AI system achieves state-of-the-art on summarisation", "ai/ai-summarisation",
		"A new AI system has achieved state-of-the-art performance on summarisation benchmarks, outpacing existing models.", "Anthropic Blog", 7},
	{"AI", "Anthropic announces new AI assistant", "ai/anthropic-assistant",
		"Anthropic has unveiled a new AI assistant designed to offer more personalised and safe interactions.", "Anthropic Blog", 18},
	{"AI", "EU proposes AI Act enforcement guidelines", "ai/eu-ai-act",
		"The European Union has proposed guidelines for enforcing the upcoming AI Act, addressing transparency and accountability.", "EU Commission", 16},

	{"Finance", "European Central Bank raises interest rates", "finance/ecb-rates",
		"The ECB has increased interest rates by 0.25 percentage points in response to rising inflation.", "Reuters", 2.5},
	{"Finance", "NASDAQ hits record high", "finance/nasdaq-record",
		"Technology shares surged on Monday, pushing the NASDAQ composite to an all-time high.", "CNBC", 8.5},
	{"Finance", "Bitcoin surpasses $100k", "finance/bitcoin-100k",
		"Bitcoin's price crossed the $100,000 mark for the first time, buoyed by institutional interest and ETF approvals.", "CryptoTimes", 6.5},
	{"Finance", "Economic slowdown predicted in Asia", "finance/asia-slowdown",
		"Analysts warn that several Asian economies may face a slowdown due to geopolitical tensions and supply chain issues.", "Bloomberg", 12.5},
	{"Finance", "Startups raise billions in fintech funding", "finance/fintech-funding",
		"Fintech startups worldwide raised more than $5 billion in venture capital funding in the last quarter.", "TechCrunch", 21},
}

// Sample serves a fixed offline batch covering the default categories.
// Publication times are relative to Now so recency scoring stays
// meaningful.
type Sample struct {
	Now func() time.Time
}

func (s *Sample) LoadArticles(ctx context.Context) ([]news.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return SampleArticles(now), nil
}

// SampleArticles builds the sample batch relative to now.
func SampleArticles(now time.Time) []news.Article {
	articles := make([]news.Article, 0, len(sampleItems))
	for _, it := range sampleItems {
		articles = append(articles, news.Article{
			Title:       it.title,
			Link:        "https://news.example.com/" + it.slug,
			Description: it.description,
			Published:   now.Add(-time.Duration(it.hoursAgo * float64(time.Hour))).UTC(),
			Publisher:   it.publisher,
			Category:    it.category,
		})
	}
	return articles
}
