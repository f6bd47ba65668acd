package java_debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessClassNameFromFilePath(t *testing.T) {
	assert.Equal(t, "com.example.App", GuessClassNameFromFilePath("src/main/java/com/example/App.java"))
	assert.Equal(t, "com.example.AppTest", GuessClassNameFromFilePath("src/test/java/com/example/AppTest.java"))
	// 不在标准maven目录下的文件，直接按目录结构推导
	assert.Equal(t, "com.example.App", GuessClassNameFromFilePath("com/example/App.java"))
}

func TestGuessFilePathFromClassName(t *testing.T) {
	assert.Equal(t, "src/main/java/com/example/App.java", GuessFilePathFromClassName("com.example.App"))
	// 内部类映射到外部类所在的文件
	assert.Equal(t, "src/main/java/com/example/App.java", GuessFilePathFromClassName("com.example.App$Inner"))
}

func TestSignatureConversion(t *testing.T) {
	assert.Equal(t, "Lcom/example/App;", SignatureFromClassName("com.example.App"))
	assert.Equal(t, "com.example.App", ClassNameFromSignature("Lcom/example/App;"))
}

func TestTypeNameFromSignature(t *testing.T) {
	assert.Equal(t, "int", TypeNameFromSignature("I"))
	assert.Equal(t, "boolean", TypeNameFromSignature("Z"))
	assert.Equal(t, "java.lang.String", TypeNameFromSignature("Ljava/lang/String;"))
	assert.Equal(t, "int[]", TypeNameFromSignature("[I"))
	assert.Equal(t, "java.lang.String[][]", TypeNameFromSignature("[[Ljava/lang/String;"))
}

func TestIsJDKClass(t *testing.T) {
	assert.True(t, IsJDKClass("java.util.ArrayList"))
	assert.True(t, IsJDKClass("sun.misc.Unsafe"))
	assert.True(t, IsJDKClass("com.sun.proxy.Proxy1"))
	assert.False(t, IsJDKClass("com.example.App"))
	assert.False(t, IsJDKClass("javafans.Main"))
}
