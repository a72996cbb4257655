package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/models"
)

// seedNamespace keeps curated story IDs stable across restarts and stores.
var seedNamespace = uuid.MustParse("6f1c2e8a-5b0d-4e43-9a57-2d4c1f7e9b10")

type seedStory struct {
	key      string
	Title    string
	Subtitle string
	Location string
	Date     string
	Image    string
	Fact     string
	Fiction  string
	Mood     models.Mood
}

var seedStories = []seedStory{
	{
		key:      "story-1",
		Title:    "ใจกลางกรุง",
		Subtitle: "กรุงเทพฯ ใครต่างบอกว่ามีคนนับล้าน แต่ทำไมมันถึงเงียบขนาดนี้",
		Location: "BANGKOK, TH",
		Date:     "28.01.2026",
		Image:    "/img/1.jpg",
		Fact:     "แยก MBK สยาม ในเวลา 18.00 น. ผู้คนกำลังกลับบ้าน",
		Fiction:  "หลายต่อหลายคน บอกไว้ว่า กรุงเทพฯ เป็นเมืองที่เสียงดัง แปลกจัง? ฉันกลับไม่ได้ยินเสียงอะไรเลย เดินอยู่กลางผู้คนนับร้อย กลับได้ยินเพียงเสียงหัวใจตัวเอง และเสียงเพลงจากหูฟัง ผู้คนไม่มองกันและกัน ไม่คุยกันเลย ทำไมบางคนดูสนุก? ทำไมบางคนดูเครียดจัง? ทำไมบางคนเศร้าขนาดนี้? คนนั้นดีใจทำไมกัน? แปลกจัง ฉันอยากได้ยินเสียง ช่วยพูดให้ดังขึ้นหน่อยได้ไหม ฉันว่ามันค่อนข้างเหงา ถ้าฉันไม่ได้ยินเสียงผู้คน",
		Mood:     models.MoodDystopian,
	},
	{
		key:      "story-2",
		Title:    "ถนนคนรอ",
		Subtitle: "เรารออะไรกันอยู่?",
		Location: "SIAM SQUARE, BKK",
		Date:     "12.01.2026",
		Image:    "/img/2.jpg",
		Fact:     "สยามสแควร์ ย่านการค้าใจกลางกรุงเทพฯ ผู้คนมากมายกำลังซื้อของและเดินทางกลับบ้านหลังเลิกงาน",
		Fiction:  "แปลกจัง ที่นี่ไม่มีใครรีบเร่งเลย ทุกคนกำลังเดินอย่างช้าๆ คล้ายกับรออะไรบางอย่าง แปลกจัง ที่นี่ไม่มีลมหนาว แต่กลับรู้สึกเย็นยะเยือก แปลกจัง ที่นี่ฉันไม่เคยมา แต่ทำไมรู้สึกคุ้นเคย แปลกจัง ที่นี่ไม่มีใครพูดคุยกัน แต่ทำไมฉันรู้สึกเหมือนมีใครกำลังเฝ้ามองอยู่ แปลกจัง ที่นี่ไม่มีคนที่ฉันรู้จัก แต่ทำไมฉันรู้สึกเหมือนกำลังรอใครสักคน",
		Mood:     models.MoodNostalgia,
	},
	{
		key:      "story-3",
		Title:    "จักรยานที่รอคอย",
		Subtitle: "จักรยานที่ไม่มีคนขี่",
		Location: "บรรทัดทอง กรุงเทพฯ",
		Date:     "26.01.2026",
		Image:    "/img/8.jpg",
		Fact:     "จักรยานแม่บ้าน สนิมเกาะกิน อยู่ที่หน้าบ้านที่ไร้ร่องรอยการอยู่อาศัยมาเป็นเวลานาน",
		Fiction:  "เจ้าของคงรีบมาก จนลืมไปว่าเคยจอดทิ้งไว้ตรงนี้... หรือเขาอาจจะไม่ได้ตั้งใจจะทิ้งมัน แต่ชีวิตพาเขาไปไกลจนกลับมาไม่ได้ จักรยานคันนี้เลยกลายเป็นอนุสาวรีย์แห่งการรอคอย รอวันที่เจ้าของจะกลับมาปัดฝุ่น สูบลม แล้วปั่นมันออกไปปากซอยอีกครั้ง... ซึ่งวันนั้นคงไม่มีจริง",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-4",
		Title:    "หากต้องการคนไปส่ง",
		Subtitle: "เรือที่กรุงเทพฯ เคยเจอปลาหรือเปล่า?",
		Location: "บรรดทัดทอง กรุงเทพฯ",
		Date:     "15.01.2026",
		Image:    "/img/5.jpg",
		Fact:     "เรือที่คอยรับส่งผู้คน ในคลองแสนแสบ ย่านบรรทัดทอง กรุงเทพฯ",
		Fiction:  "หลายต่อหลายครั้ง ที่ฉันอยากเห็นคนอื่นเป็นในสิ่งที่ฉันต้องการ หลายครั้ง ที่อยากให้คนอื่นคิดเหมือนที่ฉันคิด แต่ฉันก็ได้เห็นแค่ตัวเองเท่านั้นที่เป็นในสิ่งที่ฉันต้องการ เรือลำนี้เหมือนกัน ฉันไม่เคยรู้ว่ามันต้องการแบบไหน อยากเจอปลา หรือ อยากไปรับคน เหงาแย่เลยเนาะ ที่ต้องวนอยู่ในที่เดิมๆ จนถึงวันที่ไม่สามารถลอยอยู่บนน้ำได้ คงคล้ายๆกับ มนุษย์ที่ไม่สามารถหายใจบนโลกได้",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-5",
		Title:    "ซอยตันที่ฉันต้องเดินทุกวัน",
		Subtitle: "บางทีซอยนี้ อาจจะเคยมีทางออกอยู่นะ",
		Location: "ซอยโรงเรียนจารุณีวิทย์ กรุงเทพฯ",
		Date:     "07.01.2026",
		Image:    "/img/6.jpg",
		Fact:     "ซอยโรงเรียนจารุณีวิทย์ ย่านบรรทัดทอง กรุงเทพฯ เป็นซอยตันที่มีบ้านเรือนอยู่อาศัย",
		Fiction:  "พลัดหลงมาไกลจัง ไกลพอที่จะลืมตัวตนของตัวเองแล้วมั้ง ลืมไปแล้วหรือยังว่าชอบอะไร? ชอบเดินจริงๆหรอ? เดินเพราะชอบ หรือชอบเพราะเดิน? ซอยนี้ก็คงพลัดจากเพื่อนมาไกลพอสมควร ข้างทาง ตามกำแพงที่ลวดลายงานศิลปะของศิลปินบางคนที่อาจจะแค่เดินผ่านมา หรือ อาจจะเคยอาศัยอยู่ที่นี่มาก่อน มีคนคิดถึงซอยนี้ไหมนะ อาจจะมีคนที่รอรับลูกที่ซอยนี้ เด็กโตหรือยังนะ คิดถึงไหมนะ อาจจะมีคนเลิกงาน แล้วเดินกลับทางนี้ ตอนนี้ยังทำงานอยู่ไหมนะ คิดถึงจังนะ",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-6",
		Title:    "โรงแรม",
		Subtitle: "ก็แค่ที่พักชั่วคราว",
		Location: "THE SPADES HOTEL, BKK",
		Date:     "19.01.2026",
		Image:    "/img/7.jpg",
		Fact:     "โรงแรม The Spades ย่านบรรทัดทอง กรุงเทพฯ",
		Fiction:  "ฉันเคยคิดว่า ฉันเหนื่อยก็แค่พัก ฉันเคยคิดว่า ฉันเหงาก็แค่คุย ฉันเคยคิดว่า ฉันหิวก็แค่กิน แต่พอเวลาผ่านไป ฉันก็เริ่มรู้ว่า บางทีการพัก มันก็ไม่ได้ทำให้เราหายเหนื่อย การคุย มันก็ไม่ได้ทำให้เราหายเหงา และการกิน มันก็ไม่ได้ทำให้เราหายหิว ทำไมเราต้องทำตามสิ่งที่คิดว่าถูกต้อง เพียงเพราะคนอื่นๆบอกแบบนั้น ทำไมไม่คิดว่า ฉันเหนื่อย ฉันอาจจะแค่ต้องการของอร่อย ทำไมถึงไม่คิดว่า ฉันเหงา ฉันแค่อยากเดินเล่น ทำไมไม่คิดว่า ฉันหิว แต่ฉันไม่ได้อยากกินอะไรแล้ว ความต้องการจริงๆของฉันเป็นยังไง ใครกันแน่ที่รู้ วันนี้เป้าหมายของวัน ก็อาจจะแค่พักสักครู่",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-7",
		Title:    "ครึ่งนึง",
		Subtitle: "ตรึ่งนึงของความเหงา",
		Location: "ซอยโรงเรียนจารุณีวิทย์ กรุงเทพฯ",
		Date:     "29.01.2026",
		Image:    "/img/9.jpg",
		Fact:     "ซอยโรงเรียนจารุณีวิทย์ ย่านบรรทัดทอง กรุงเทพฯ",
		Fiction:  "ตอนเด็กก็เข้าใจว่าต้องทำงานเพื่อหาเงินซื้อของเล่น ซื้อขนม พอโตมาถึงได้รู้ เราทำงานก็เพราะต้องเสียค่าใช้ชีวิตบนโลกนี้ แต่พอเราทำงาน กลับรู้สึกเสียเวลาในการใช้ชีวิตมากกว่า 8 ชั่วโมงต่อวัน บางทีเหมือนกับครึ่งนึงของในแต่ละวันของผม ถูกกลืนกินโดยสภาพแวดล้อมที่ไม่สนุก เอาเสียเลย จะเป็นอะไรไหม ถ้าผมไม่อยากจ่ายค่าใช้ชีวิตแล้ว และก็ไม่อยากเสียครึ่งนึงของวันแล้ว",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-8",
		Title:    "มีจดหมายมาส่งครับ",
		Subtitle: "จดหมายฉบับสุดท้ายของคุณ ที่เขียนโดยลายมือมนุษย์",
		Location: "ตู้ไปรษณีย์ ย่านบรรทัดทอง กรุงเทพฯ",
		Date:     "29.01.2026",
		Image:    "/img/10.jpg",
		Fact:     "ตู้ไปรษณีย์ ย่านบรรทัดทอง กรุงเทพฯ",
		Fiction:  "ความมหัศจรรย์ของตัวอักษรในจดหมาย คือ ตัวอักษรจะมีเสียงในหัวของผู้เขียนถึงเสมอ ไม่ว่าผู้เขียนจะเศร้า เสียใจ ดีใจ เราจะรับรู้ผ่านตัวอักษรที่กำลังโลดแล่นบนบรรทัดที่ถูกกำหนดขึ้นมาเองจากจินตนาการของกระดาษที่ไร้เส้นบรรทัด หากผมสามารถมองเห็นรอยยิ้มของผู้เขียนได้ หรือ เห็นน้ำตาของผู้เขียนได้ จดหมายแต่ละฉบับที่อ่านได้รับ คงถูกรักษาเป็นอย่างดี เหมือนกับการเก็บรักษาความทรงจำที่มีชีวิตอยู่ตลอดเวลา",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-9",
		Title:    "ฉันแค่เดินชิดขวา",
		Subtitle: "ไปและมาในเส้นทางของชีวิต",
		Location: "ถนนบรรทัดทอง กรุงเทพฯ",
		Date:     "29.01.2026",
		Image:    "/img/11.jpg",
		Fact:     "ถนนบรรทัดทอง กรุงเทพฯ",
		Fiction:  "บางครั้งชีวิตก็เหมือนการเดินทางบนถนนที่มีเส้นแบ่งเลนชัดเจน เราต้องเดินชิดขวา เพื่อหลีกเลี่ยงการชนกับผู้คนที่เดินสวนมา บางครั้งเราก็ต้องเร่งฝีเท้าเพื่อไม่ให้ใครแซงหน้าเราไปก่อน บางครั้งเราก็ต้องหยุดรอ เมื่อมีใครสักคนข้ามถนนอยู่ข้างหน้าเรา ชีวิตก็เช่นกัน เราต้องเรียนรู้ที่จะเดินไปข้างหน้าอย่างระมัดระวัง รู้ว่าเมื่อไหร่ควรเร่ง เมื่อไหร่ควรหยุด และเมื่อไหร่ควรปล่อยให้ใครสักคนผ่านไปก่อน เพราะในที่สุดแล้ว จุดหมายปลายทางของเราก็คือการเดินทางที่เต็มไปด้วยความเข้าใจและความอดทน",
		Mood:     models.MoodIsolation,
	},
	{
		key:      "story-10",
		Title:    "ครึ่งฟ้าครึ่งไฟ",
		Subtitle: "อยากให้ฟ้าร้อง แต่ก็กลัวไฟไหม้",
		Location: "ถนนบรรทัดทอง กรุงเทพฯ",
		Date:     "29.01.2026",
		Image:    "/img/12.jpg",
		Fact:     "ถนนบรรทัดทอง กรุงเทพฯ",
		Fiction:  "สายไฟในกรุงเทพฯ เป็นเหมือนเส้นเลือดใหญ่หรือสัญลักษณ์ของความยุ่งเหยิงในเมืองใหญ่ บางครั้งเด็กน้อยคนนี้อาจจะแค่อยากดูเมฆให้เต็มดวงตา ยากเนาะ ยากไปหมด",
		Mood:     models.MoodIsolation,
	},
}

// Seed returns the curated catalog in gallery order. CreatedAt decreases down
// the list so newest-first listing keeps that order. IDs are derived from a
// fixed namespace so the same story keeps its ID in every store.
func Seed() []*models.Story {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	stories := make([]*models.Story, 0, len(seedStories))
	for i, s := range seedStories {
		stories = append(stories, &models.Story{
			ID:        uuid.NewSHA1(seedNamespace, []byte(s.key)),
			Title:     s.Title,
			Subtitle:  s.Subtitle,
			Location:  s.Location,
			Date:      s.Date,
			Image:     s.Image,
			Fact:      s.Fact,
			Fiction:   s.Fiction,
			Mood:      s.Mood,
			CreatedAt: base.Add(time.Duration(len(seedStories)-i) * time.Minute),
		})
	}
	return stories
}
