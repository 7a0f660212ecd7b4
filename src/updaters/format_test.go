package updaters

import (
	"testing"

	"sp2any/src/plurality"
)

func mockFronter(name, vrchatOverride string) plurality.Fronter {
	f := plurality.Fronter{FronterID: name, Name: name}
	if vrchatOverride != "" {
		f.VRChatStatusName = &vrchatOverride
	}
	return f
}

func mockFormat(prefix, noFronts string, truncateTo, maxLength int) Format {
	return Format{
		Prefix:                prefix,
		StatusIfNoFronters:    noFronts,
		TruncateNamesToLength: truncateTo,
		Cleaning:              CleanForVRChat,
		MaxLength:             &maxLength,
	}
}

func TestFormatEmptyFronts(t *testing.T) {
	cfg := mockFormat("F:", "nobody?", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, nil, false)
	if got != "F: nobody?" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatSingleMemberFitsLong(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{mockFronter("Alice", "")}, false)
	if got != "F: Alice" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatFitsShortNotLong(t *testing.T) {
	cfg := mockFormat("Status:", "N/A", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{mockFronter("UserOne", ""), mockFronter("UserTwo", "")}, false)
	if got != "Status:UserOne,UserTwo" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatFitsTruncatedNotShort(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{
		mockFronter("Alexander", ""), mockFronter("Benjamin", ""), mockFronter("Charlotte", ""),
	}, false)
	if got != "F:Ale,Ben,Cha" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatUsesVRChatStatusName(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{mockFronter("OriginalName", "VRChatSpecific")}, false)
	if got != "F: VRChatSpecific" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatCleansNames(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{mockFronter("User\U0001F60AName", "")}, false)
	if got != "F: UserName" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatDoesntCleanConfiguredOverride(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 3, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{mockFronter("UN", "User\U0001F60AName")}, false)
	if got != "F: User\U0001F60AName" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatComplexTruncationAndVRCName(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 4, VRChatMaxStatusLength)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{
		mockFronter("LongNameOne\U0001F60A", ""),
		mockFronter("Shorty", "VRC11"),
		mockFronter("AnotherVeryLong", ""),
	}, false)
	if got != "F:Long,VRC1,Anot" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatCountFallback(t *testing.T) {
	cfg := mockFormat("F:", "N/A", 4, 10)
	got := FormatFrontingStatus(cfg, []plurality.Fronter{
		mockFronter("LongNameOne\U0001F60A", ""),
		mockFronter("Shorty", "VRC11"),
		mockFronter("AnotherVeryLong", ""),
	}, false)
	if got != "F: 3#" {
		t.Fatalf("got %q", got)
	}
}

func TestStringCodepointsLengthCountsRunesNotBytes(t *testing.T) {
	if StringCodepointsLength("123") != 3 {
		t.Fatalf("expected 3")
	}
	if StringCodepointsLength("é") != 1 {
		t.Fatalf("expected 1")
	}
	if StringCodepointsLength("你好") != 2 {
		t.Fatalf("expected 2")
	}
}

func TestCleanNameForVRChatEncodingAndWhitespace(t *testing.T) {
	in := "ValidName123!€ Špecial Chars Ž"
	if got := CleanNameForVRChatStatus(in); got != in {
		t.Fatalf("expected unchanged ISO-8859-15-representable string, got %q", got)
	}
}

func TestCleanNameForVRChatStripsEmoji(t *testing.T) {
	got := CleanNameForVRChatStatus("Name\U0001F60AWith\U0001F680Emojis❤️Symbols✅")
	if got != "NameWithEmojisSymbols" {
		t.Fatalf("got %q", got)
	}
}
